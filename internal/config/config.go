package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Embedding store backends.
const (
	BackendJSONL    = "jsonl"
	BackendPostgres = "postgres"
)

// Neighbor sources for incremental clustering.
const (
	NeighborIndexExact = "exact"
	NeighborIndexHNSW  = "hnsw"
)

type Config struct {
	DataRoot   string
	Embeddings EmbeddingsConfig
	Database   DatabaseConfig
	Graph      GraphConfig      `yaml:"graph"`
	Clustering ClusteringConfig `yaml:"clustering"`
	Curation   CurationConfig   `yaml:"curation"`
	Log        LogConfig
	Web        WebConfig
}

type EmbeddingsConfig struct {
	Backend   string // jsonl or postgres
	FacesFile string // defaults to <DataRoot>/faces.jsonl
}

type DatabaseConfig struct {
	URL           string // PostgreSQL connection URL
	MaxOpenConns  int    // Maximum open connections (default 25)
	MaxIdleConns  int    // Maximum idle connections (default 5)
	HNSWIndexPath string // Path to persist the face HNSW index (optional)
}

type GraphConfig struct {
	DistanceThreshold      float64 `yaml:"distance_threshold"`
	PartitionSeed          uint64  `yaml:"partition_seed"`
	PartitionResolution    float64 `yaml:"partition_resolution"`
	ComponentNeighborLimit int     `yaml:"component_neighbor_limit"`

	// ComponentDistanceThreshold is the tighter edge limit for linking
	// neighboring components in component detail.
	ComponentDistanceThreshold float64 `yaml:"component_distance_threshold"`
}

type ClusteringConfig struct {
	K                 int     `yaml:"k"`
	DistanceThreshold float64 `yaml:"distance_threshold"`
	SizeThreshold     int     `yaml:"size_threshold"`
	NeighborIndex     string  `yaml:"neighbor_index"`
}

type CurationConfig struct {
	BucketWidth         float64 `yaml:"bucket_width"`
	MinDistance         float64 `yaml:"min_distance"`
	MaxDistance         float64 `yaml:"max_distance"`
	ComponentSampleSize int     `yaml:"component_sample_size"`
}

type WebConfig struct {
	AllowedOrigins []string // extra CORS origins; localhost is always allowed
}

type LogConfig struct {
	Level  string
	Format string
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envUint reads an environment variable and parses it as an unsigned integer.
func envUint(key string, defaultVal uint64) uint64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return n
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList reads a comma-separated environment variable, dropping blanks.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Defaults returns the embedded tunables without any environment overrides.
func Defaults() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	cfg.DataRoot = "."
	cfg.Embeddings.Backend = BackendJSONL
	cfg.Log = LogConfig{Level: "info", Format: "text"}
	return &cfg
}

func Load() *Config {
	cfg := Defaults()

	cfg.DataRoot = envString("DATA_ROOT", cfg.DataRoot)
	cfg.Embeddings = EmbeddingsConfig{
		Backend:   envString("EMBEDDING_BACKEND", BackendJSONL),
		FacesFile: envString("FACES_FILE", DefaultFacesFile(cfg.DataRoot)),
	}
	cfg.Database = DatabaseConfig{
		URL:           os.Getenv("DATABASE_URL"),
		MaxOpenConns:  envInt("DATABASE_MAX_OPEN_CONNS", 25),
		MaxIdleConns:  envInt("DATABASE_MAX_IDLE_CONNS", 5),
		HNSWIndexPath: os.Getenv("HNSW_INDEX_PATH"),
	}

	cfg.Graph.DistanceThreshold = envFloat("GRAPH_DISTANCE_THRESHOLD", cfg.Graph.DistanceThreshold)
	cfg.Graph.PartitionSeed = envUint("PARTITION_SEED", cfg.Graph.PartitionSeed)
	cfg.Graph.PartitionResolution = envFloat("PARTITION_RESOLUTION", cfg.Graph.PartitionResolution)
	cfg.Graph.ComponentNeighborLimit = envInt("COMPONENT_NEIGHBOR_LIMIT", cfg.Graph.ComponentNeighborLimit)
	cfg.Graph.ComponentDistanceThreshold = envFloat("COMPONENT_DISTANCE_THRESHOLD", cfg.Graph.ComponentDistanceThreshold)

	cfg.Clustering.K = envInt("CLUSTER_K", cfg.Clustering.K)
	cfg.Clustering.DistanceThreshold = envFloat("CLUSTER_DISTANCE_THRESHOLD", cfg.Clustering.DistanceThreshold)
	cfg.Clustering.SizeThreshold = envInt("CLUSTER_SIZE_THRESHOLD", cfg.Clustering.SizeThreshold)
	cfg.Clustering.NeighborIndex = envString("CLUSTER_NEIGHBOR_INDEX", cfg.Clustering.NeighborIndex)

	cfg.Web.AllowedOrigins = envList("WEB_ALLOWED_ORIGINS")
	cfg.Log = LogConfig{
		Level:  envString("LOG_LEVEL", "info"),
		Format: envString("LOG_FORMAT", "text"),
	}
	return cfg
}

// Validate checks settings that would otherwise fail deep inside a command.
func (c *Config) Validate() error {
	switch c.Embeddings.Backend {
	case BackendJSONL:
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s embedding backend", BackendPostgres)
		}
	default:
		return fmt.Errorf("unknown embedding backend %q", c.Embeddings.Backend)
	}
	switch c.Clustering.NeighborIndex {
	case NeighborIndexExact, NeighborIndexHNSW:
	default:
		return fmt.Errorf("unknown neighbor index %q", c.Clustering.NeighborIndex)
	}
	if c.Graph.DistanceThreshold <= 0 || c.Graph.DistanceThreshold > 2 {
		return fmt.Errorf("graph distance threshold %v out of range (0, 2]", c.Graph.DistanceThreshold)
	}
	return nil
}

// DefaultFacesFile is the jsonl embedding file under a data root.
func DefaultFacesFile(dataRoot string) string {
	return filepath.Join(dataRoot, "faces.jsonl")
}

// GraphPath is the persisted similarity graph.
func (c *Config) GraphPath() string {
	return filepath.Join(c.DataRoot, "face_similarity.gexf")
}

// ComponentsPath is the persisted component list.
func (c *Config) ComponentsPath() string {
	return filepath.Join(c.DataRoot, "louvain_communities.json")
}

// PeoplePath is the persisted people registry.
func (c *Config) PeoplePath() string {
	return filepath.Join(c.DataRoot, "people.json")
}

// ComponentPeoplePath is the persisted component to person assignment map.
func (c *Config) ComponentPeoplePath() string {
	return filepath.Join(c.DataRoot, "component_people.json")
}

// ClusteringPath is where the incremental clustering report is written.
func (c *Config) ClusteringPath() string {
	return filepath.Join(c.DataRoot, "clustering.json")
}

// FaceCropsDir holds extracted face crops named face_<id>.jpg.
func (c *Config) FaceCropsDir() string {
	return filepath.Join(c.DataRoot, "faces_extr")
}
