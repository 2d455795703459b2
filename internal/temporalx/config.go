package temporalx

import (
	"time"

	"github.com/yungbote/pinegate-backend/internal/platform/envutil"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	AutoRegisterNamespace bool
	DialTimeout           time.Duration
	DialMaxWait           time.Duration
	// WorkerConcurrency caps concurrent activity and workflow task executions.
	WorkerConcurrency int
}

// Enabled reports whether a Temporal address is configured.
func (c Config) Enabled() bool { return c.Address != "" }

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Address:   envutil.String("TEMPORAL_ADDRESS", ""),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "pinegate"),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", "pinegate"),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),

		AutoRegisterNamespace: envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false, log),
		DialTimeout:           envutil.Seconds("TEMPORAL_DIAL_TIMEOUT_SECONDS", 5*time.Second, log),
		DialMaxWait:           envutil.Seconds("TEMPORAL_DIAL_MAX_WAIT_SECONDS", 60*time.Second, log),
		WorkerConcurrency:     envutil.Int("TEMPORAL_WORKER_CONCURRENCY", 2, log),
	}
}
