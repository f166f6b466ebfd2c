package vars

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	// Engine API generations, selected once at startup
	EngineAssistants = "assistants"
	EngineChat       = "chat"

	// Chat model backends for the chat generation
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	// Relational drivers
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	// Analysis profile and the analisis.tipo_analisis it records
	ProfileTDR      = "tdr_estructura"
	AnalysisTypeTDR = "extraccion_estructura_tdr"

	QWEN7B = "qwen2.5:7b"
	GPT4O  = "gpt-4o"
)

// Config is the process configuration. Keys map 1:1 onto environment variables
// (PGHOST, POLL_TIMEOUT, ...) and onto the optional YAML config file.
type Config struct {
	HTTPAddr  string `mapstructure:"http_addr" yaml:"http_addr"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	DBDriver   string `mapstructure:"db_driver" yaml:"db_driver"`
	PGHost     string `mapstructure:"pghost" yaml:"pghost"`
	PGUser     string `mapstructure:"pguser" yaml:"pguser"`
	PGPwd      string `mapstructure:"pgpwd" yaml:"-"`
	PGDB       string `mapstructure:"pgdb" yaml:"pgdb"`
	PGPort     string `mapstructure:"pgport" yaml:"pgport"`
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`

	EngineAPI      string        `mapstructure:"engine_api" yaml:"engine_api"`
	ChatProvider   string        `mapstructure:"chat_provider" yaml:"chat_provider"`
	ChatModel      string        `mapstructure:"chat_model" yaml:"chat_model"`
	OllamaPath     string        `mapstructure:"ollama_path" yaml:"ollama_path"`
	OpenAIKey      string        `mapstructure:"openai_api_key" yaml:"-"`
	OpenAIBaseURL  string        `mapstructure:"openai_base_url" yaml:"openai_base_url"`
	AssistantID    string        `mapstructure:"assistant_id" yaml:"assistant_id"`
	AssistantModel string        `mapstructure:"assistant_model" yaml:"assistant_model"`
	EngineRPS      float64       `mapstructure:"engine_rps" yaml:"engine_rps"`
	SessionTTL     time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`

	PollInterval     time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	PollTimeout      time.Duration `mapstructure:"poll_timeout" yaml:"poll_timeout"`
	PollListLimit    int           `mapstructure:"poll_list_limit" yaml:"poll_list_limit"`
	MessageListLimit int           `mapstructure:"message_list_limit" yaml:"message_list_limit"`

	StorageRoot  string `mapstructure:"storage_root" yaml:"storage_root"`
	RulebookPath string `mapstructure:"rulebook_path" yaml:"rulebook_path"`

	ESAddr  string `mapstructure:"esaddr" yaml:"esaddr"`
	ESIndex string `mapstructure:"es_index" yaml:"es_index"`

	ReaperSchedule string `mapstructure:"reaper_schedule" yaml:"reaper_schedule"`
}

// SetDefaults registers every key so env overrides reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8081")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetDefault("db_driver", DriverPostgres)
	v.SetDefault("pghost", "localhost")
	v.SetDefault("pguser", "postgres")
	v.SetDefault("pgpwd", "postgres")
	v.SetDefault("pgdb", "expedientes")
	v.SetDefault("pgport", "5432")
	v.SetDefault("sqlite_path", "expedientes.db")

	v.SetDefault("engine_api", EngineAssistants)
	v.SetDefault("chat_provider", ProviderOllama)
	v.SetDefault("chat_model", QWEN7B)
	v.SetDefault("ollama_path", "http://localhost:11434")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_base_url", "")
	v.SetDefault("assistant_id", "")
	v.SetDefault("assistant_model", GPT4O)
	v.SetDefault("engine_rps", 2.0)
	v.SetDefault("session_ttl", time.Hour)

	v.SetDefault("poll_interval", 1500*time.Millisecond)
	v.SetDefault("poll_timeout", 300*time.Second)
	v.SetDefault("poll_list_limit", 20)
	v.SetDefault("message_list_limit", 20)

	v.SetDefault("storage_root", "./public/uploads")
	v.SetDefault("rulebook_path", "")

	v.SetDefault("esaddr", "")
	v.SetDefault("es_index", "tdr_requisitos_v1")

	v.SetDefault("reaper_schedule", "@every 5m")
}

// Load reads the effective configuration out of v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.EngineAPI {
	case EngineAssistants, EngineChat:
	default:
		return fmt.Errorf("unknown engine_api %q", c.EngineAPI)
	}
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unknown db_driver %q", c.DBDriver)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.PollTimeout < c.PollInterval {
		return fmt.Errorf("poll_timeout %s is shorter than poll_interval %s", c.PollTimeout, c.PollInterval)
	}
	if c.PollListLimit <= 0 || c.MessageListLimit <= 0 {
		return fmt.Errorf("list limits must be positive")
	}
	return nil
}

// DSN builds the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == DriverSQLite {
		return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", c.SQLitePath)
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.PGHost, c.PGUser, c.PGPwd, c.PGDB, c.PGPort)
}

// TDRPrompt is the fixed instruction sent with every TDR analysis request.
var TDRPrompt = `Eres un analista experto en Términos de Referencia (TDR) de proyectos de infraestructura en Perú.

Lee el documento adjunto COMPLETO y devuelve SOLO un JSON válido, sin texto adicional ni bloques de código, con esta estructura exacta:

{
  "proyecto": {
    "nombre_proyecto": "string o null",
    "cui": "string o null",
    "entidad_ejecutora": "string o null",
    "monto_referencial": "número o null",
    "descripcion": "string o null",
    "numero_entregables": "número o null"
  },
  "entregables": [
    {
      "nombre_entregable": "string",
      "plazo_dias": "entero o null",
      "secciones": [
        {
          "nombre": "string",
          "orden": 1,
          "es_estudio_completo": true,
          "tipos_documento": [
            {
              "nombre_tipo_documento": "string",
              "orden": 1,
              "contenidos_minimos": [
                {
                  "nombre_requisito": "string",
                  "descripcion_completa": "string",
                  "es_obligatorio": true,
                  "orden": 1
                }
              ]
            }
          ]
        }
      ]
    }
  ]
}

REGLAS:
1. entregables: uno por cada entregable del TDR (Primer Entregable, Segundo Entregable, ...). nombre_entregable es el nombre del entregable escrito en palabras.
2. secciones: estudios o informes que contiene cada entregable. orden empieza en 1 dentro de cada entregable.
3. tipos_documento: subtítulos o subapartados de cada sección. orden empieza en 1 dentro de cada sección.
4. contenidos_minimos: cada requisito de contenido mínimo con su texto literal completo. orden empieza en 1 dentro de cada tipo de documento.
5. Si un dato no existe usa null o un arreglo vacío. No inventes información.
6. Los valores "orden" son únicos dentro de su nivel.`
