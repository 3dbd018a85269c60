package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	DB      DBConfig      `mapstructure:"db"`
	Cron    CronConfig    `mapstructure:"cron"`
	Auction AuctionConfig `mapstructure:"auction"`
	Payment PaymentConfig `mapstructure:"payment"`
	Fanout  FanoutConfig  `mapstructure:"fanout"`
	Bank    BankConfig    `mapstructure:"bank"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	AuctionSweep string `mapstructure:"auction_sweep"`
	StatsReport  string `mapstructure:"stats_report"`
}

// AuctionConfig carries the arbitration rules that are tunable per deployment.
// Durations mirror the product rules: bids landing within ExtendWindow of the
// close push the close to now+ExtendBy; a leading bid cannot be cancelled
// within CancelGuard of the close.
type AuctionConfig struct {
	ExtendWindow    time.Duration `mapstructure:"extend_window"`
	ExtendBy        time.Duration `mapstructure:"extend_by"`
	CancelGuard     time.Duration `mapstructure:"cancel_guard"`
	MaxParticipants int           `mapstructure:"max_participants"`
	DepositMultiple int64         `mapstructure:"deposit_multiple"`
	DeleteLeadTime  time.Duration `mapstructure:"delete_lead_time"`
}

type PaymentConfig struct {
	DepositTokenTTL time.Duration `mapstructure:"deposit_token_ttl"`
	FinalTokenTTL   time.Duration `mapstructure:"final_token_ttl"`
}

type FanoutConfig struct {
	QueueSize        int `mapstructure:"queue_size"`
	SubscriberBuffer int `mapstructure:"subscriber_buffer"`
}

// BankConfig selects the payment rail. Mode "mock" keeps transfers in
// process; "http" talks to a real acquirer at BaseURL.
type BankConfig struct {
	Mode    string        `mapstructure:"mode"`
	Name    string        `mapstructure:"name"`
	Code    string        `mapstructure:"code"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AUCTION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.auction_sweep", "@every 10s")
	v.SetDefault("cron.stats_report", "@every 60s")
	v.SetDefault("auction.extend_window", "5m")
	v.SetDefault("auction.extend_by", "5m")
	v.SetDefault("auction.cancel_guard", "10m")
	v.SetDefault("auction.max_participants", 50)
	v.SetDefault("auction.deposit_multiple", 10)
	v.SetDefault("auction.delete_lead_time", "30m")
	v.SetDefault("payment.deposit_token_ttl", "5m")
	v.SetDefault("payment.final_token_ttl", "24h")
	v.SetDefault("fanout.queue_size", 256)
	v.SetDefault("fanout.subscriber_buffer", 32)
	v.SetDefault("bank.mode", "mock")
	v.SetDefault("bank.name", "MockBank VietNam")
	v.SetDefault("bank.code", "MB")
	v.SetDefault("bank.timeout", "10s")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
