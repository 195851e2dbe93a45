package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          int
	Key           string // signs bearer tokens and encrypts stored auth secrets
	StorageDriver string // sqlite, postgres, mysql, sqlserver
	StorageDSN    string
	ProxyTimeout  time.Duration
	TokenTTL      time.Duration
	LogDir        string
}

func Load() (*Config, error) {
	// Try loading .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	key := os.Getenv("REQBRIDGE_KEY")
	if len(key) < 32 {
		fmt.Println("REQBRIDGE_KEY not found or too short. Generating a new secure key...")
		newKey, err := generateRandomKey(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate key: %w", err)
		}

		if err := saveKeyToEnv(newKey); err != nil {
			fmt.Printf("Warning: Failed to save generated key to .env: %v\n", err)
		} else {
			fmt.Println("New REQBRIDGE_KEY saved to .env file.")
		}
		key = newKey
	}

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err == nil {
			port = p
		}
	}

	driver := os.Getenv("STORAGE_DRIVER")
	if driver == "" {
		driver = "sqlite"
	}

	dsn := os.Getenv("STORAGE_DSN")
	if dsn == "" {
		dsn = "reqbridge.db"
	}

	proxyTimeout := 30
	if s := os.Getenv("PROXY_TIMEOUT"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			proxyTimeout = v
		}
	}

	tokenTTL := 24
	if s := os.Getenv("TOKEN_TTL"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			tokenTTL = v
		}
	}

	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}

	return &Config{
		Port:          port,
		Key:           key,
		StorageDriver: strings.ToLower(driver),
		StorageDSN:    dsn,
		ProxyTimeout:  time.Duration(proxyTimeout) * time.Second,
		TokenTTL:      time.Duration(tokenTTL) * time.Hour,
		LogDir:        logDir,
	}, nil
}

func generateRandomKey(length int) (string, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	// Base64 so the key is printable and survives .env round-trips
	return base64.StdEncoding.EncodeToString(b), nil
}

func saveKeyToEnv(key string) error {
	filename := ".env"
	content, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return os.WriteFile(filename, []byte(fmt.Sprintf("REQBRIDGE_KEY=%s\nPORT=8080\n", key)), 0644)
	} else if err != nil {
		return err
	}

	lines := strings.Split(string(content), "\n")
	found := false
	newLines := make([]string, 0, len(lines)+1)

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "REQBRIDGE_KEY=") {
			newLines = append(newLines, fmt.Sprintf("REQBRIDGE_KEY=%s", key))
			found = true
		} else if trimmed != "" {
			newLines = append(newLines, trimmed)
		}
	}

	if !found {
		newLines = append(newLines, fmt.Sprintf("REQBRIDGE_KEY=%s", key))
	}

	return os.WriteFile(filename, []byte(strings.Join(newLines, "\n")+"\n"), 0644)
}
