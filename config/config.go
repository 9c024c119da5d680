package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Database  DatabaseConfig   `mapstructure:"database"`
	Redis     RedisConfig      `mapstructure:"redis"`
	JWT       JWTConfig        `mapstructure:"jwt"`
	OSS       OSSConfig        `mapstructure:"oss"`
	Queue     QueueConfig      `mapstructure:"queue"`
	CORS      CORSConfig       `mapstructure:"cors"`
	Staking   StakingConfig    `mapstructure:"staking"`
	Packages  []StakingPackage `mapstructure:"packages"`
	Promotion PromotionConfig  `mapstructure:"promotion"`
	Report    ReportConfig     `mapstructure:"report"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

type QueueConfig struct {
	JobQueue   string `mapstructure:"job_queue"`
	MaxWorkers int    `mapstructure:"max_workers"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// StakingConfig 质押业务参数
type StakingConfig struct {
	DirectBonusRate float64 `mapstructure:"direct_bonus_rate"` // 直推奖励比例
	CooldownDays    int     `mapstructure:"cooldown_days"`     // 解押冷却天数
	MaxTeamLevels   int     `mapstructure:"max_team_levels"`   // 团队层级上限
}

// StakingPackage 质押套餐，启动时加载，运行期只读
type StakingPackage struct {
	ID       int     `mapstructure:"id"`
	Name     string  `mapstructure:"name"`
	Amount   float64 `mapstructure:"amount"`
	DailyROI float64 `mapstructure:"daily_roi"` // 日收益率（百分比）
	Cap      float64 `mapstructure:"cap"`       // 最大收益倍数
	Visible  bool    `mapstructure:"visible"`
}

type PromotionConfig struct {
	Milestones []PromotionMilestone `mapstructure:"milestones"`
}

// PromotionMilestone 晋升里程碑：直推人数 + 团队业绩达标后可领取奖励
type PromotionMilestone struct {
	ID          int     `mapstructure:"id"`
	Name        string  `mapstructure:"name"`
	DirectCount int     `mapstructure:"direct_count"`
	TeamVolume  float64 `mapstructure:"team_volume"`
	Reward      float64 `mapstructure:"reward"`
}

type ReportConfig struct {
	ExcludeUserIDs []int64 `mapstructure:"exclude_user_ids"` // 测试账号，不计入报表
	DayOffsetHours int     `mapstructure:"day_offset_hours"` // 日切偏移小时数
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	// 检查 config.local.yaml 是否存在
	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// 环境变量覆盖
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// FindPackageByAmount 按金额精确匹配可见套餐
func (c *Config) FindPackageByAmount(amount float64) *StakingPackage {
	for i := range c.Packages {
		if c.Packages[i].Visible && c.Packages[i].Amount == amount {
			return &c.Packages[i]
		}
	}
	return nil
}

// FindPackageByID 按 ID 查找套餐（含不可见套餐，代金券兑换会用到）
func (c *Config) FindPackageByID(id int) *StakingPackage {
	for i := range c.Packages {
		if c.Packages[i].ID == id {
			return &c.Packages[i]
		}
	}
	return nil
}

// VisiblePackages 返回对用户可见的套餐列表
func (c *Config) VisiblePackages() []StakingPackage {
	out := make([]StakingPackage, 0, len(c.Packages))
	for _, p := range c.Packages {
		if p.Visible {
			out = append(out, p)
		}
	}
	return out
}
