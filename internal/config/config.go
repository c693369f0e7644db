package config

import (
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port         int           `yaml:"port" default:"8080"`
		Host         string        `yaml:"host" default:"0.0.0.0"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
		IdleTimeout  time.Duration `yaml:"idle_timeout" default:"60s"`
	} `yaml:"server"`

	Workers struct {
		PoolSize      int           `yaml:"pool_size" default:"10"`
		URLTimeout    time.Duration `yaml:"url_timeout" default:"30s"`
		DelayMin      time.Duration `yaml:"delay_min" default:"500ms"`
		DelayMax      time.Duration `yaml:"delay_max" default:"2s"`
		LogEvictAfter time.Duration `yaml:"log_evict_after" default:"300s"`
		LogBufferCap  int           `yaml:"log_buffer_cap" default:"1000"`
	} `yaml:"workers"`

	Cascade struct {
		Enabled            bool          `yaml:"enabled" default:"true"`
		Order              []string      `yaml:"order"`
		MaxAttempts        int           `yaml:"max_attempts" default:"4"`
		StatusCodes        []int         `yaml:"status_codes"`
		ErrorPatterns      []string      `yaml:"error_patterns"`
		PoisonPills        []string      `yaml:"poison_pills"`
		EmptyContent       bool          `yaml:"empty_content" default:"true"`
		MinContentLength   int           `yaml:"min_content_length" default:"500"`
		JavascriptRequired bool          `yaml:"javascript_required" default:"false"`
		HTTPTimeout        time.Duration `yaml:"http_timeout" default:"15s"`
	} `yaml:"cascade"`

	Breaker struct {
		FailureThreshold int           `yaml:"failure_threshold" default:"5"`
		RecoveryTimeout  time.Duration `yaml:"recovery_timeout" default:"30s"`
		HalfOpenMaxCalls int           `yaml:"half_open_max_calls" default:"3"`
	} `yaml:"breaker"`

	Scraper struct {
		UserAgent    string `yaml:"user_agent"`
		HeadlessMode bool   `yaml:"headless_mode" default:"true"`
		StealthMode  bool   `yaml:"stealth_mode" default:"true"`
		Captcha      struct {
			Provider        string        `yaml:"provider" default:"2captcha"`
			APIKey          string        `yaml:"api_key"`
			Timeout         time.Duration `yaml:"timeout" default:"120s"`
			EnableAutoSolve bool          `yaml:"enable_auto_solve" default:"true"`
		} `yaml:"captcha"`
	} `yaml:"scraper"`

	BrowserPool struct {
		MaxInstances    int           `yaml:"max_instances" default:"5"`
		MaxIdleTime     time.Duration `yaml:"max_idle_time" default:"5m"`
		CleanupInterval time.Duration `yaml:"cleanup_interval" default:"5m"`
	} `yaml:"browser_pool"`

	Firecrawl struct {
		APIKey     string        `yaml:"api_key"`
		APIURL     string        `yaml:"api_url" default:"https://api.firecrawl.dev"`
		Timeout    time.Duration `yaml:"timeout" default:"60s"`
		MaxRetries int           `yaml:"max_retries" default:"3"`
		Formats    []string      `yaml:"formats" default:"markdown"`
	} `yaml:"firecrawl"`

	BrightData struct {
		APIKey    string        `yaml:"api_key"`
		BaseURL   string        `yaml:"base_url" default:"https://api.brightdata.com"`
		DatasetID string        `yaml:"dataset_id"`
		Timeout   time.Duration `yaml:"timeout" default:"60s"`
	} `yaml:"brightdata"`

	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`

		Adapters []struct {
			Name    string                 `yaml:"name"`
			Type    string                 `yaml:"type"`
			Enabled bool                   `yaml:"enabled"`
			Options map[string]interface{} `yaml:"options"`
		} `yaml:"adapters"`
	} `yaml:"logging"`

	Redis struct {
		URL      string        `yaml:"url" default:"redis://localhost:6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db" default:"0"`
		Timeout  time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"redis"`

	DigitalOcean struct {
		Spaces struct {
			BucketURL       string `yaml:"bucket_url"`
			CDNEndpoint     string `yaml:"cdn_endpoint"`
			AccessKeyID     string `yaml:"access_key_id"`
			AccessKeySecret string `yaml:"access_key_secret"`
			Region          string `yaml:"region" default:"blr1"`
			BucketName      string `yaml:"bucket_name" default:"scrapeforge-artifacts"`
		} `yaml:"spaces"`
	} `yaml:"digitalocean"`
}

// expandEnvVars expands environment variables in a string using ${VAR} or $VAR syntax
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	re2 := regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	s = re2.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return s
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	config := &Config{}

	config.Server.Port = 8080
	config.Server.Host = "0.0.0.0"
	config.Server.ReadTimeout = 30 * time.Second
	config.Server.WriteTimeout = 30 * time.Second
	config.Server.IdleTimeout = 60 * time.Second

	config.Workers.PoolSize = 10
	config.Workers.URLTimeout = 30 * time.Second
	config.Workers.DelayMin = 500 * time.Millisecond
	config.Workers.DelayMax = 2 * time.Second
	config.Workers.LogEvictAfter = 300 * time.Second
	config.Workers.LogBufferCap = 1000

	config.Cascade.Enabled = true
	config.Cascade.Order = []string{"http", "brightdata", "headless", "firecrawl"}
	config.Cascade.MaxAttempts = 4
	config.Cascade.StatusCodes = []int{403, 429, 503}
	config.Cascade.PoisonPills = []string{"anti_bot", "rate_limited"}
	config.Cascade.EmptyContent = true
	config.Cascade.MinContentLength = 500
	config.Cascade.HTTPTimeout = 15 * time.Second

	config.Breaker.FailureThreshold = 5
	config.Breaker.RecoveryTimeout = 30 * time.Second
	config.Breaker.HalfOpenMaxCalls = 3

	config.Scraper.HeadlessMode = true
	config.Scraper.StealthMode = true
	config.Scraper.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	config.Scraper.Captcha.Provider = "2captcha"
	config.Scraper.Captcha.Timeout = 120 * time.Second
	config.Scraper.Captcha.EnableAutoSolve = true

	config.BrowserPool.MaxInstances = 5
	config.BrowserPool.MaxIdleTime = 5 * time.Minute
	config.BrowserPool.CleanupInterval = 5 * time.Minute

	config.Firecrawl.APIURL = "https://api.firecrawl.dev"
	config.Firecrawl.Timeout = 60 * time.Second
	config.Firecrawl.MaxRetries = 3
	config.Firecrawl.Formats = []string{"markdown"}

	config.BrightData.BaseURL = "https://api.brightdata.com"
	config.BrightData.Timeout = 60 * time.Second

	config.Logging.Level = "info"
	config.Logging.Format = "json"
	config.Logging.Output = "stdout"

	config.Redis.URL = "redis://localhost:6379"
	config.Redis.DB = 0
	config.Redis.Timeout = 5 * time.Second

	config.DigitalOcean.Spaces.Region = "blr1"
	config.DigitalOcean.Spaces.BucketName = "scrapeforge-artifacts"

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			yamlContent := expandEnvVars(string(data))
			if err := yaml.Unmarshal([]byte(yamlContent), config); err != nil {
				return nil, err
			}
		}
	}

	config.loadFromEnv()

	return config, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	if captchaAPIKey := os.Getenv("CAPTCHA_API_KEY"); captchaAPIKey != "" {
		c.Scraper.Captcha.APIKey = captchaAPIKey
	}
	if captchaAPIKey := os.Getenv("2CAPTCHA_API_KEY"); captchaAPIKey != "" {
		c.Scraper.Captcha.APIKey = captchaAPIKey
	}

	if firecrawlAPIKey := os.Getenv("FIRECRAWL_API_KEY"); firecrawlAPIKey != "" {
		c.Firecrawl.APIKey = firecrawlAPIKey
	}
	if firecrawlAPIURL := os.Getenv("FIRECRAWL_API_URL"); firecrawlAPIURL != "" {
		c.Firecrawl.APIURL = firecrawlAPIURL
	}

	if brightdataAPIKey := os.Getenv("BRIGHTDATA_API_KEY"); brightdataAPIKey != "" {
		c.BrightData.APIKey = brightdataAPIKey
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.URL = redisURL
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		c.Redis.Password = redisPassword
	}
	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			c.Redis.DB = db
		}
	}

	if betterstackEnabled := os.Getenv("BETTERSTACK_ENABLED"); betterstackEnabled != "" {
		enabled := betterstackEnabled == "true" || betterstackEnabled == "1"
		for i := range c.Logging.Adapters {
			if c.Logging.Adapters[i].Name == "betterstack" || c.Logging.Adapters[i].Type == "betterstack" {
				c.Logging.Adapters[i].Enabled = enabled
				break
			}
		}
	}

	if bucketURL := os.Getenv("SPACES_BUCKET_URL"); bucketURL != "" {
		c.DigitalOcean.Spaces.BucketURL = bucketURL
	}
	if cdnEndpoint := os.Getenv("SPACES_CDN_ENDPOINT"); cdnEndpoint != "" {
		c.DigitalOcean.Spaces.CDNEndpoint = cdnEndpoint
	}
	if accessKeyID := os.Getenv("SPACES_ACCESS_KEY_ID"); accessKeyID != "" {
		c.DigitalOcean.Spaces.AccessKeyID = accessKeyID
	}
	if accessKeySecret := os.Getenv("SPACES_ACCESS_KEY_SECRET"); accessKeySecret != "" {
		c.DigitalOcean.Spaces.AccessKeySecret = accessKeySecret
	}
	if region := os.Getenv("SPACES_REGION"); region != "" {
		c.DigitalOcean.Spaces.Region = region
	}
	if bucketName := os.Getenv("SPACES_BUCKET_NAME"); bucketName != "" {
		c.DigitalOcean.Spaces.BucketName = bucketName
	}

	if maxInstances := os.Getenv("BROWSER_POOL_MAX_INSTANCES"); maxInstances != "" {
		if instances, err := strconv.Atoi(maxInstances); err == nil {
			c.BrowserPool.MaxInstances = instances
		}
	}

	c.loadLoggingAdapterEnvVars()
}

// loadLoggingAdapterEnvVars loads environment variables for logging adapters
func (c *Config) loadLoggingAdapterEnvVars() {
	for i := range c.Logging.Adapters {
		adapter := &c.Logging.Adapters[i]

		if adapter.Type != "betterstack" {
			continue
		}

		if token := os.Getenv("BETTERSTACK_SOURCE_TOKEN"); token != "" {
			if adapter.Options == nil {
				adapter.Options = make(map[string]interface{})
			}
			adapter.Options["source_token"] = token
		}

		if endpoint := os.Getenv("BETTERSTACK_ENDPOINT"); endpoint != "" {
			if adapter.Options == nil {
				adapter.Options = make(map[string]interface{})
			}
			adapter.Options["endpoint"] = endpoint
		}
	}
}
