package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	Saby     SabyConfig     `yaml:"saby" mapstructure:"saby"`
	Kontur   KonturConfig   `yaml:"kontur" mapstructure:"kontur"`
	Browser  BrowserConfig  `yaml:"browser" mapstructure:"browser"`
	Convert  ConvertConfig  `yaml:"convert" mapstructure:"convert"`
	Telegram TelegramConfig `yaml:"telegram" mapstructure:"telegram"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// SabyConfig configures the saby catalog source.
type SabyConfig struct {
	// TariffURLTemplate builds the per-region page URL. %s receives the
	// region slug from the regions file, or the region code when no slug
	// is set.
	TariffURLTemplate string `yaml:"tariff_url_template" mapstructure:"tariff_url_template"`
	RegionsFile       string `yaml:"regions_file" mapstructure:"regions_file"`
}

// KonturConfig configures the kontur catalog source.
type KonturConfig struct {
	// DocURLTemplate builds the per-region price page URL; %s receives
	// the region code.
	DocURLTemplate string `yaml:"doc_url_template" mapstructure:"doc_url_template"`
	DocLinkText    string `yaml:"doc_link_text" mapstructure:"doc_link_text"`

	// Link texts for the three batch PDF price lists.
	ZeroPDFLinkText   string `yaml:"zero_pdf_link_text" mapstructure:"zero_pdf_link_text"`
	TaxRepPDFLinkText string `yaml:"tax_rep_pdf_link_text" mapstructure:"tax_rep_pdf_link_text"`
	StartPDFLinkText  string `yaml:"start_pdf_link_text" mapstructure:"start_pdf_link_text"`

	RegionsFile string `yaml:"regions_file" mapstructure:"regions_file"`
}

// BrowserConfig configures the Chrome session.
type BrowserConfig struct {
	Headless        bool   `yaml:"headless" mapstructure:"headless"`
	DownloadDir     string `yaml:"download_dir" mapstructure:"download_dir"`
	NavTimeoutSecs  int    `yaml:"nav_timeout_secs" mapstructure:"nav_timeout_secs"`
	RequestsPerMin  int    `yaml:"requests_per_min" mapstructure:"requests_per_min"`
}

// ConvertConfig configures legacy document conversion.
type ConvertConfig struct {
	SofficePath string `yaml:"soffice_path" mapstructure:"soffice_path"`
}

// TelegramConfig holds delivery credentials.
type TelegramConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	ChatID string `yaml:"chat_id" mapstructure:"chat_id"`
}

// StoreConfig configures the local run ledger.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// OutputConfig configures where workbooks are written.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// PipelineConfig tunes the batch loop.
type PipelineConfig struct {
	// CheckpointEvery is how many regions between workbook snapshots.
	CheckpointEvery int `yaml:"checkpoint_every" mapstructure:"checkpoint_every"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PRICEGRAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("saby.tariff_url_template", "https://saby.ru/tariffs?tab=ereport&region=%s")
	v.SetDefault("saby.regions_file", "regions.yaml")
	v.SetDefault("kontur.doc_url_template", "https://www.kontur-extern.ru/price-download/%s")
	v.SetDefault("kontur.doc_link_text", "Скачать полный прайс-лист, часть 2")
	v.SetDefault("kontur.zero_pdf_link_text",
		"Скачать прайс-лист на тарифные планы «Общий Лайт», «Нулевая отчетность», «Кадровые отчеты», «Классический»")
	v.SetDefault("kontur.tax_rep_pdf_link_text", "Скачать прайс-лист для налоговых представителей")
	v.SetDefault("kontur.start_pdf_link_text", "Скачать прайс-лист на тарифный план «Стартовый онлайн»")
	v.SetDefault("kontur.regions_file", "regions.yaml")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.download_dir", "downloads")
	v.SetDefault("browser.nav_timeout_secs", 60)
	v.SetDefault("browser.requests_per_min", 20)
	v.SetDefault("convert.soffice_path", "soffice")
	v.SetDefault("store.path", "pricegrab.db")
	v.SetDefault("output.dir", ".")
	v.SetDefault("pipeline.checkpoint_every", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Region is one batch entry from the regions file.
type Region struct {
	// Code is the 2-digit region code, zero padded.
	Code string `yaml:"code"`
	Name string `yaml:"name"`
	// Slug overrides the URL template argument. The region code is used
	// when empty, which matches the public tariff page routing.
	Slug string `yaml:"slug,omitempty"`
}

type regionsFile struct {
	Regions []Region `yaml:"regions"`
}

// LoadRegions reads the region batch from a YAML file. An empty batch is
// an error: a run over zero regions is always a configuration mistake.
func LoadRegions(path string) ([]Region, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read regions %s", path)
	}

	var f regionsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, eris.Wrapf(err, "config: parse regions %s", path)
	}
	if len(f.Regions) == 0 {
		return nil, eris.Errorf("config: no regions in %s", path)
	}
	for _, r := range f.Regions {
		if len(r.Code) != 2 {
			return nil, eris.Errorf("config: bad region code %q in %s", r.Code, path)
		}
	}
	return f.Regions, nil
}
