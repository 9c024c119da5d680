package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/qs3c/stake_go_server/config"
	"github.com/qs3c/stake_go_server/internal/pkg/database"
	"github.com/qs3c/stake_go_server/internal/pkg/oss"
	"github.com/qs3c/stake_go_server/internal/repository"
	"github.com/qs3c/stake_go_server/internal/service"
)

var (
	windowDays = flag.Int("days", 90, "Analysis window in days")
	output     = flag.String("output", "STAKING_REPORT.json", "Output file path")
	upload     = flag.Bool("upload", false, "Upload report to OSS after generation")
)

func main() {
	flag.Parse()

	log.Println("📊 Generating staking forecast report...")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	stakeRepo := repository.NewStakeRepository(db)
	balRepo := repository.NewBalanceRepository(db)
	txRepo := repository.NewTransactionRepository(db)

	reportService := service.NewReportService(userRepo, stakeRepo, balRepo, txRepo, cfg)

	data, err := reportService.Gather(time.Duration(*windowDays) * 24 * time.Hour)
	if err != nil {
		log.Fatalf("Failed to gather report data: %v", err)
	}

	report := reportService.Build(data)
	printSummary(report)

	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal report: %v", err)
	}
	if err := os.WriteFile(*output, raw, 0644); err != nil {
		log.Fatalf("Failed to write report file: %v", err)
	}
	log.Printf("Report written to %s", *output)

	if *upload {
		if cfg.OSS.Endpoint == "" || cfg.OSS.AccessKeyID == "" {
			log.Fatal("OSS not configured, cannot upload report")
		}
		ossClient, err := oss.NewClient(&cfg.OSS)
		if err != nil {
			log.Fatalf("Failed to init OSS client: %v", err)
		}
		url, err := ossClient.UploadReport(*output, raw)
		if err != nil {
			log.Fatalf("Failed to upload report: %v", err)
		}
		log.Printf("Report uploaded: %s", url)
	}
}

func printSummary(r *service.ForecastReport) {
	fmt.Println()
	fmt.Println("================ 平台概况 ================")
	fmt.Printf("用户总数:         %d\n", r.TotalUsers)
	fmt.Printf("质押单状态分布:   %v\n", r.StakesByStatus)
	fmt.Printf("活跃质押本金:     %.2f\n", r.ActivePrincipal)
	fmt.Printf("用户余额合计:     %.2f\n", r.TotalBalance)
	fmt.Printf("当前资产:         %.2f\n", r.CurrentAssets)
	fmt.Println()
	fmt.Println("================ 提现画像 ================")
	fmt.Printf("日均提现:         %.2f\n", r.WithdrawDailyAvg)
	fmt.Printf("周均提现:         %.2f\n", r.WithdrawWeeklyAvg)
	fmt.Printf("月均提现:         %.2f\n", r.WithdrawMonthlyAvg)
	fmt.Printf("提现增长率:       %.2f%%\n", r.GrowthRate*100)
	fmt.Printf("30日最大单日净流出: %.2f\n", r.MaxOutflow30d)
	fmt.Printf("90日最大单日净流出: %.2f\n", r.MaxOutflow90d)
	fmt.Printf("净流出 P90:       %.2f\n", r.OutflowP90)
	fmt.Println()
	fmt.Println("================ 资金预测 ================")
	fmt.Printf("30日线性外推提现: %.2f\n", r.LinearProjection30d)
	fmt.Printf("14日复利外推提现: %.2f\n", r.CompoundForecast14d)
	fmt.Printf("30日复利外推提现: %.2f\n", r.CompoundForecast30d)
	fmt.Printf("30日用户规模预测: %d\n", r.ProjectedUsers30d)
	fmt.Printf("30日质押规模预测: %.2f\n", r.ProjectedStaking30d)
	fmt.Printf("日均净现金流:     %.2f\n", r.NetCashFlowDaily)
	if r.BankruptcyDate != "" {
		fmt.Printf("⚠️  资金耗尽预计日期: %s\n", r.BankruptcyDate)
	} else {
		fmt.Println("资金面健康，无耗尽风险")
	}
	fmt.Println("==========================================")
}
