package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/BenjaminSRussell/crawlchimp/internal/types"
)

// DefaultCredentialsFile is where the template is written when no path is given.
const DefaultCredentialsFile = "credentials.json"

var sampleCredentials = types.Credentials{
	Username: "your_username",
	Password: "your_password",
	Token:    "your_bearer_token",
	APIKey:   "your_api_key",
	Cookies: map[string]string{
		"session_id": "your_session_id",
		"auth_token": "your_auth_token",
	},
}

// LoadCredentials reads the credentials file at path (if any) and lets an
// explicit username and password pair override it. The returned credentials are
// usable even when err is non-nil: a broken file only loses the file values.
func LoadCredentials(path, username, password string) (types.Credentials, error) {
	var creds types.Credentials
	var fileErr error

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			err = json.Unmarshal(data, &creds)
		}
		if err != nil {
			creds = types.Credentials{}
			fileErr = fmt.Errorf("failed to load credentials file %s: %w", path, err)
		}
	}

	if username != "" && password != "" {
		creds.Username = username
		creds.Password = password
	}

	return creds, fileErr
}

// WriteTemplate writes a sample credentials file. An existing file is only
// replaced when force is set.
func WriteTemplate(path string, force bool) error {
	if path == "" {
		path = DefaultCredentialsFile
	}

	data, err := json.MarshalIndent(sampleCredentials, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !force {
		flags = os.O_CREATE | os.O_WRONLY | os.O_EXCL
	}

	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

// LoadSessionFile reads a cookie name to value map.
func LoadSessionFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	cookies := make(map[string]string)
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("failed to parse session file %s: %w", path, err)
	}

	return cookies, nil
}

// SaveSessionFile writes cookies as a name to value map.
func SaveSessionFile(path string, cookies map[string]string) error {
	if cookies == nil {
		cookies = map[string]string{}
	}

	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}
