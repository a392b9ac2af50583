package snowflake

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	gosnowflake "github.com/snowflakedb/gosnowflake"
)

// buildJWTDSN rewrites dsn to use key-pair authentication with the RSA key
// stored at keyPath.
func buildJWTDSN(dsn, keyPath string) (string, error) {
	sfConfig, err := gosnowflake.ParseDSN(dsn)
	if err != nil && strings.Contains(err.Error(), "password is empty") {
		// ParseDSN insists on a password even for JWT auth.
		if at := strings.Index(dsn, "@"); at > 0 && !strings.Contains(dsn[:at], ":") {
			sfConfig, err = gosnowflake.ParseDSN(dsn[:at] + ":_" + dsn[at:])
		}
	}
	if err != nil {
		return "", fmt.Errorf("parse DSN: %w", err)
	}

	key, err := loadPrivateKey(keyPath)
	if err != nil {
		return "", err
	}

	sfConfig.Password = ""
	sfConfig.Authenticator = gosnowflake.AuthTypeJwt
	sfConfig.PrivateKey = key

	out, err := gosnowflake.DSN(sfConfig)
	if err != nil {
		return "", fmt.Errorf("rebuild DSN: %w", err)
	}
	return out, nil
}

// loadPrivateKey reads an unencrypted PEM RSA key in PKCS#1 or PKCS#8 form.
func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key file %q: %w", path, err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in %q", path)
	}

	var parsed interface{}
	switch block.Type {
	case "RSA PRIVATE KEY":
		parsed, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		parsed, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	default:
		return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA (got %T)", parsed)
	}
	return key, nil
}
