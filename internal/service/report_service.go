package service

import (
	"math"
	"sort"
	"time"

	"github.com/qs3c/stake_go_server/config"
	"github.com/qs3c/stake_go_server/internal/model"
	"github.com/qs3c/stake_go_server/internal/repository"
)

// 周增长率的压缩上限：预测用，超出按 ±20% 截断
const maxWeeklyGrowth = 0.20

// DayBucket 一天的资金净流出
type DayBucket struct {
	Day     string  `json:"day"` // YYYY-MM-DD（含日切偏移）
	Inflow  float64 `json:"inflow"`
	Outflow float64 `json:"outflow"`
	Net     float64 `json:"net"` // outflow - inflow，正数代表净流出
}

// ForecastReport 财务预测报表
type ForecastReport struct {
	GeneratedAt string `json:"generated_at"`

	// 现状
	TotalUsers      int64            `json:"total_users"`
	StakesByStatus  map[string]int64 `json:"stakes_by_status"`
	ActivePrincipal float64          `json:"active_principal"`
	TotalBalance    float64          `json:"total_balance"`
	CurrentAssets   float64          `json:"current_assets"`

	// 提现画像
	WithdrawDailyAvg   float64 `json:"withdraw_daily_avg"`
	WithdrawWeeklyAvg  float64 `json:"withdraw_weekly_avg"`
	WithdrawMonthlyAvg float64 `json:"withdraw_monthly_avg"`
	GrowthRate         float64 `json:"growth_rate"` // 后半段相对前半段

	// 净流出序列
	NetOutflowDays  []DayBucket `json:"net_outflow_days"`
	MaxOutflow30d   float64     `json:"max_outflow_30d"`
	MaxOutflow90d   float64     `json:"max_outflow_90d"`
	OutflowP90      float64     `json:"outflow_p90"`

	// 预测
	LinearProjection30d  float64 `json:"linear_projection_30d"`
	CompoundForecast14d  float64 `json:"compound_forecast_14d"`
	CompoundForecast30d  float64 `json:"compound_forecast_30d"`
	ProjectedUsers30d    int64   `json:"projected_users_30d"`
	ProjectedStaking30d  float64 `json:"projected_staking_30d"`

	// 破产投影：净现金流为负时给出日期，否则为空
	NetCashFlowDaily float64 `json:"net_cash_flow_daily"`
	BankruptcyDate   string  `json:"bankruptcy_date,omitempty"`
}

// ReportData 报表输入数据
type ReportData struct {
	Now             time.Time
	Withdrawals     []model.TransactionRecord
	Deposits        []model.TransactionRecord
	Rewards         []model.TransactionRecord
	TotalUsers      int64
	FirstUserAt     time.Time
	StakesByStatus  map[string]int64
	ActivePrincipal float64
	TotalBalance    float64
}

type ReportService struct {
	userRepo  *repository.UserRepository
	stakeRepo *repository.StakeRepository
	balRepo   *repository.BalanceRepository
	txRepo    *repository.TransactionRepository
	cfg       *config.Config
}

func NewReportService(
	userRepo *repository.UserRepository,
	stakeRepo *repository.StakeRepository,
	balRepo *repository.BalanceRepository,
	txRepo *repository.TransactionRepository,
	cfg *config.Config,
) *ReportService {
	return &ReportService{
		userRepo:  userRepo,
		stakeRepo: stakeRepo,
		balRepo:   balRepo,
		txRepo:    txRepo,
		cfg:       cfg,
	}
}

// Gather 拉取报表所需的全部数据，排除配置里的测试账号
func (s *ReportService) Gather(window time.Duration) (*ReportData, error) {
	now := time.Now()
	since := now.Add(-window)
	exclude := s.cfg.Report.ExcludeUserIDs

	withdrawals, err := s.txRepo.ListByTypesSince([]string{model.TxTypeWithdraw, model.TxTypeUnstake}, since, exclude)
	if err != nil {
		return nil, err
	}
	deposits, err := s.txRepo.ListByTypesSince([]string{model.TxTypeDeposit, model.TxTypeStake}, since, exclude)
	if err != nil {
		return nil, err
	}
	rewards, err := s.txRepo.ListByTypesSince([]string{model.TxTypeReward, model.TxTypeBonus}, since, exclude)
	if err != nil {
		return nil, err
	}

	totalUsers, err := s.userRepo.CountAll()
	if err != nil {
		return nil, err
	}
	// 增长外推按平台实际年龄算，而不是报表窗口长度
	firstUserAt := since
	earliest, err := s.userRepo.EarliestCreatedAt()
	if err != nil {
		return nil, err
	}
	if earliest != nil {
		firstUserAt = *earliest
	}
	statusCounts, err := s.stakeRepo.CountByStatus(exclude)
	if err != nil {
		return nil, err
	}
	principal, err := s.stakeRepo.SumActivePrincipal(exclude)
	if err != nil {
		return nil, err
	}
	totalBalance, err := s.balRepo.SumAllBalance(exclude)
	if err != nil {
		return nil, err
	}

	return &ReportData{
		Now:             now,
		Withdrawals:     withdrawals,
		Deposits:        deposits,
		Rewards:         rewards,
		TotalUsers:      totalUsers,
		FirstUserAt:     firstUserAt,
		StakesByStatus:  statusCounts,
		ActivePrincipal: principal,
		TotalBalance:    totalBalance,
	}, nil
}

// Build 按既定公式把数据算成报表
func (s *ReportService) Build(data *ReportData) *ForecastReport {
	offset := time.Duration(s.cfg.Report.DayOffsetHours) * time.Hour

	withdrawSeries := DailySeries(data.Withdrawals, offset)
	depositSeries := DailySeries(data.Deposits, offset)
	rewardSeries := DailySeries(data.Rewards, offset)

	dailyAvg := SeriesAverage(withdrawSeries)
	growth := GrowthRate(SeriesValues(withdrawSeries))

	netDays := netOutflowBuckets(withdrawSeries, depositSeries)
	netValues := make([]float64, 0, len(netDays))
	for _, d := range netDays {
		netValues = append(netValues, d.Net)
	}

	weeklyGrowth := ClampWeeklyGrowth(growth)

	report := &ForecastReport{
		GeneratedAt:     data.Now.Format(time.RFC3339),
		TotalUsers:      data.TotalUsers,
		StakesByStatus:  data.StakesByStatus,
		ActivePrincipal: data.ActivePrincipal,
		TotalBalance:    data.TotalBalance,
		CurrentAssets:   data.TotalBalance + data.ActivePrincipal,

		WithdrawDailyAvg:   dailyAvg,
		WithdrawWeeklyAvg:  dailyAvg * 7,
		WithdrawMonthlyAvg: dailyAvg * 30,
		GrowthRate:         growth,

		NetOutflowDays: netDays,
		MaxOutflow30d:  MaxInWindow(netDays, data.Now, offset, 30),
		MaxOutflow90d:  MaxInWindow(netDays, data.Now, offset, 90),
		OutflowP90:     Percentile(netValues, 90),

		LinearProjection30d: dailyAvg * (1 + growth) * 30,
		CompoundForecast14d: CompoundForecast(dailyAvg, weeklyGrowth, 14),
		CompoundForecast30d: CompoundForecast(dailyAvg, weeklyGrowth, 30),
	}

	// 用户/质押规模线性外推
	elapsedDays := math.Max(1, data.Now.Sub(data.FirstUserAt).Hours()/24)
	report.ProjectedUsers30d = data.TotalUsers + int64(float64(data.TotalUsers)/elapsedDays*30)
	report.ProjectedStaking30d = data.ActivePrincipal + data.ActivePrincipal/elapsedDays*30

	// 日均净现金流 = 流入 - 流出 - 发放的收益
	inflowAvg := SeriesAverage(depositSeries)
	rewardAvg := SeriesAverage(rewardSeries)
	report.NetCashFlowDaily = inflowAvg - dailyAvg - rewardAvg

	if days, ok := BankruptcyDays(report.CurrentAssets, report.NetCashFlowDaily); ok {
		report.BankruptcyDate = data.Now.Add(time.Duration(days*24) * time.Hour).Format("2006-01-02")
	}

	return report
}

// ----- 纯计算，供测试直接驱动 -----

// DailySeries 把流水按天聚合。日切加偏移：凌晨的流水归入前
// 一天的运营日。
func DailySeries(records []model.TransactionRecord, offset time.Duration) map[string]float64 {
	out := make(map[string]float64)
	for _, r := range records {
		day := r.CreatedAt.Add(-offset).Format("2006-01-02")
		out[day] += r.Amount
	}
	return out
}

// SeriesValues 按日期顺序导出序列值
func SeriesValues(series map[string]float64) []float64 {
	days := make([]string, 0, len(series))
	for d := range series {
		days = append(days, d)
	}
	sort.Strings(days)

	out := make([]float64, 0, len(days))
	for _, d := range days {
		out = append(out, series[d])
	}
	return out
}

// SeriesAverage 日均值（只对有流水的天取平均）
func SeriesAverage(series map[string]float64) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series))
}

// GrowthRate 朴素增长率：序列后半段均值相对前半段均值的
// 变化比例。样本不足两个点时为 0。
func GrowthRate(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	mid := len(values) / 2
	firstAvg := average(values[:mid])
	secondAvg := average(values[mid:])

	if firstAvg == 0 {
		return 0
	}
	return (secondAvg - firstAvg) / firstAvg
}

// Percentile 线性插值求百分位
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ClampWeeklyGrowth 周增长率截断到 ±20%
func ClampWeeklyGrowth(growth float64) float64 {
	if growth > maxWeeklyGrowth {
		return maxWeeklyGrowth
	}
	if growth < -maxWeeklyGrowth {
		return -maxWeeklyGrowth
	}
	return growth
}

// CompoundForecast 带截断的复利外推：日均值按周增长率折算的
// 日因子逐日复利，累计 days 天的总量
func CompoundForecast(dailyAvg, weeklyGrowth float64, days int) float64 {
	dailyFactor := math.Pow(1+weeklyGrowth, 1.0/7)
	total := 0.0
	current := dailyAvg
	for i := 0; i < days; i++ {
		current *= dailyFactor
		total += current
	}
	return total
}

// MaxInWindow 最近 windowDays 天内的最大单日净流出
func MaxInWindow(days []DayBucket, now time.Time, offset time.Duration, windowDays int) float64 {
	cutoff := now.Add(-offset).AddDate(0, 0, -windowDays).Format("2006-01-02")

	maxNet := 0.0
	for _, d := range days {
		if d.Day >= cutoff && d.Net > maxNet {
			maxNet = d.Net
		}
	}
	return maxNet
}

// BankruptcyDays 资产耗尽天数：净现金流为负时有意义
func BankruptcyDays(currentAssets, netCashFlowDaily float64) (float64, bool) {
	if netCashFlowDaily >= 0 || currentAssets <= 0 {
		return 0, false
	}
	return -currentAssets / netCashFlowDaily, true
}

func netOutflowBuckets(withdrawSeries, depositSeries map[string]float64) []DayBucket {
	daySet := make(map[string]struct{})
	for d := range withdrawSeries {
		daySet[d] = struct{}{}
	}
	for d := range depositSeries {
		daySet[d] = struct{}{}
	}

	days := make([]string, 0, len(daySet))
	for d := range daySet {
		days = append(days, d)
	}
	sort.Strings(days)

	out := make([]DayBucket, 0, len(days))
	for _, d := range days {
		in := depositSeries[d]
		outflow := withdrawSeries[d]
		out = append(out, DayBucket{
			Day:     d,
			Inflow:  in,
			Outflow: outflow,
			Net:     outflow - in,
		})
	}
	return out
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
