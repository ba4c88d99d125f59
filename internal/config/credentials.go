package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Credentials holds the portal API token. Stored separately from config so
// the config file can be committed or shared without leaking secrets.
type Credentials struct {
	APIToken string `json:"api_token"`
}

// credentialsPath returns the path to the credentials file.
func credentialsPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "credentials.json"), nil
}

// LoadCredentials reads credentials from disk. A missing file is not an
// error; it returns empty credentials.
func LoadCredentials() (*Credentials, error) {
	path, err := credentialsPath()
	if err != nil {
		return nil, err
	}

	var creds Credentials
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Missing file is fine; fall through to env override
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(data, &creds); err != nil {
			return nil, err
		}
	}

	// Environment override wins
	if v := os.Getenv("DESKCHAT_API_TOKEN"); v != "" {
		creds.APIToken = v
	}

	return &creds, nil
}

// SaveCredentials writes credentials to disk with owner-only permissions.
func SaveCredentials(creds *Credentials) error {
	if _, err := EnsureDataDir(); err != nil {
		return err
	}

	path, err := credentialsPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
