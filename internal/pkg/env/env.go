package env

import (
	"os"

	"github.com/joho/godotenv"
)

var Env map[string]string

// GetEnv returns the value for key from the loaded .env file, falling
// back to the process environment and then to def.
func GetEnv(key, def string) string {
	if val, ok := Env[key]; ok {
		return val
	}
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// SetupEnvFile loads the .env file from the project root. Container
// deploys may ship configuration through the process environment
// instead; that is accepted as long as the platform secret is present.
func SetupEnvFile() {
	envFiles := []string{
		".env",          // Current directory
		"../../.env",    // From cmd/shopbridge to project root
		"../../../.env", // Fallback for deeper nesting
	}

	for _, envFile := range envFiles {
		if parsed, err := godotenv.Read(envFile); err == nil {
			Env = parsed
			return
		}
	}

	if os.Getenv("PLATFORM_SHARED_SECRET") != "" {
		Env = map[string]string{}
		return
	}

	panic("No .env file found and PLATFORM_SHARED_SECRET is not set in the environment")
}

func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}
