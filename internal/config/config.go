package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/dgallion1/rticorpus/internal/chunker"
	"github.com/dgallion1/rticorpus/internal/fetch"
	"github.com/dgallion1/rticorpus/internal/schema"
	"github.com/dgallion1/rticorpus/internal/structurer"
)

// EnvPrefix is prepended to every variable name, e.g. RTI_PORT.
const EnvPrefix = "RTI"

var (
	ErrMissingRequired = errors.New("missing required configuration")
	ErrInvalidConfig   = errors.New("invalid configuration")
)

type Config struct {
	Port string `envconfig:"PORT" default:"8090"`

	// Auth
	APIKey string `envconfig:"API_KEY"`

	// Listing and case pages
	BaseURL          string        `envconfig:"BASE_URL" default:"https://rtifoundationofindia.com"`
	ListingStartPage int           `envconfig:"LISTING_START_PAGE" default:"0"`
	ListingEndPage   int           `envconfig:"LISTING_END_PAGE" default:"10"`
	RequestDelay     time.Duration `envconfig:"REQUEST_DELAY" default:"1s"`
	FetchTimeout     time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`
	FetchMaxRetries  int           `envconfig:"FETCH_MAX_RETRIES" default:"3"`
	UserAgent        string        `envconfig:"USER_AGENT" default:"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"`

	// Worker pool
	WorkerCount  int `envconfig:"WORKER_COUNT" default:"4"`
	MaxQueueSize int `envconfig:"MAX_QUEUE_SIZE" default:"100"`

	// Upload limits
	MaxUploadBytes int64 `envconfig:"MAX_UPLOAD_BYTES" default:"52428800"` // 50MB

	// Job state
	JobTTL time.Duration `envconfig:"JOB_TTL" default:"1h"`

	// Chunking
	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"200"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"20"`

	// Embeddings
	GeminiAPIKey       string `envconfig:"GEMINI_API_KEY"`
	EmbeddingModel     string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-004"`
	EmbeddingBatchSize int    `envconfig:"EMBEDDING_BATCH_SIZE" default:"4"`

	// Storage
	DataDir string `envconfig:"DATA_DIR" default:"data"`
	DBPath  string `envconfig:"DB_PATH" default:"data/rticorpus.db"`

	// Optional TOML file overriding the structurer vocabulary and anchors.
	VocabularyFile string `envconfig:"VOCABULARY_FILE"`

	// Guide extraction
	PDFFallbackPdftotext bool   `envconfig:"PDF_FALLBACK_PDFTOTEXT" default:"true"`
	GuideFooterPattern   string `envconfig:"GUIDE_FOOTER_PATTERN" default:"^\\d+ Guide on Right to Information Act,? 2005$"`
}

// Load reads .env if present, then RTI_* variables. Variables already set in
// the environment win over the file.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Validate checks everything a long-running server needs. CLI steps that do
// not serve HTTP call ValidateChunking instead.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: %s_API_KEY", ErrMissingRequired, EnvPrefix)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("%w: worker count %d must be positive", ErrInvalidConfig, c.WorkerCount)
	}
	if c.MaxQueueSize <= 0 {
		return fmt.Errorf("%w: queue size %d must be positive", ErrInvalidConfig, c.MaxQueueSize)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w: max upload bytes %d must be positive", ErrInvalidConfig, c.MaxUploadBytes)
	}
	return c.ValidateChunking()
}

// ValidateChunking checks the settings shared by every command.
func (c Config) ValidateChunking() error {
	if err := c.Chunking().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.EmbeddingBatchSize <= 0 {
		return fmt.Errorf("%w: embedding batch size %d must be positive", ErrInvalidConfig, c.EmbeddingBatchSize)
	}
	if c.ListingEndPage < c.ListingStartPage {
		return fmt.Errorf("%w: listing pages %d..%d", ErrInvalidConfig, c.ListingStartPage, c.ListingEndPage)
	}
	if _, err := c.FooterPattern(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.FetchMaxRetries < 0 {
		return fmt.Errorf("%w: fetch max retries %d must not be negative", ErrInvalidConfig, c.FetchMaxRetries)
	}
	return nil
}

// Fetch returns the page client settings. Zero retries disables retrying.
func (c Config) Fetch() fetch.Options {
	retries := c.FetchMaxRetries
	if retries == 0 {
		retries = -1
	}
	return fetch.Options{
		UserAgent:  c.UserAgent,
		Timeout:    c.FetchTimeout,
		MaxRetries: retries,
	}
}

// Chunking returns the chunker settings.
func (c Config) Chunking() chunker.Config {
	return chunker.Config{ChunkSize: c.ChunkSize, Overlap: c.ChunkOverlap}
}

// FooterPattern compiles GuideFooterPattern.
func (c Config) FooterPattern() (*regexp.Regexp, error) {
	re, err := regexp.Compile(c.GuideFooterPattern)
	if err != nil {
		return nil, fmt.Errorf("guide footer pattern: %w", err)
	}
	return re, nil
}

// vocabularyFile is the on-disk form of the page vocabulary:
//
//	[vocabulary]
//	subheading_color = "#ff0000"
//
//	[anchors]
//	holding = "View of CIC"
//
// Omitted keys keep their defaults.
type vocabularyFile struct {
	Vocabulary structurer.Vocabulary `toml:"vocabulary"`
	Anchors    schema.Anchors        `toml:"anchors"`
}

// LoadVocabulary reads the vocabulary file at path. An empty path returns the
// defaults.
func LoadVocabulary(path string) (structurer.Vocabulary, schema.Anchors, error) {
	if path == "" {
		return structurer.DefaultVocabulary(), schema.DefaultAnchors(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return structurer.Vocabulary{}, schema.Anchors{}, fmt.Errorf("read vocabulary: %w", err)
	}
	var vf vocabularyFile
	md, err := toml.Decode(string(data), &vf)
	if err != nil {
		return structurer.Vocabulary{}, schema.Anchors{}, fmt.Errorf("decode vocabulary %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return structurer.Vocabulary{}, schema.Anchors{}, fmt.Errorf("%w: unknown vocabulary key %q", ErrInvalidConfig, undecoded[0].String())
	}

	v := mergeVocabulary(structurer.DefaultVocabulary(), vf.Vocabulary)
	a := mergeAnchors(schema.DefaultAnchors(), vf.Anchors)
	return v, a, nil
}

func mergeVocabulary(base, over structurer.Vocabulary) structurer.Vocabulary {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&base.TitleBackground, over.TitleBackground)
	set(&base.DateClass, over.DateClass)
	set(&base.DateBackground, over.DateBackground)
	set(&base.SubHeadingColor, over.SubHeadingColor)
	set(&base.SpeakerColor, over.SpeakerColor)
	set(&base.IndentProperty, over.IndentProperty)
	set(&base.SentinelID, over.SentinelID)
	return base
}

func mergeAnchors(base, over schema.Anchors) schema.Anchors {
	if over.Background != "" {
		base.Background = over.Background
	}
	if over.Holding != "" {
		base.Holding = over.Holding
	}
	if over.Citation != "" {
		base.Citation = over.Citation
	}
	return base
}
