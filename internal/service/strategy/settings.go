package strategy

import (
	"context"
	"strings"

	"github.com/KNICEX/quantflow/internal/repo"
)

const secretMask = "****"

// MaskSecret keeps at most the last 4 characters of a secret.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return secretMask
	}
	return secretMask + secret[len(secret)-4:]
}

func isMasked(secret string) bool {
	return strings.HasPrefix(secret, secretMask)
}

// MaskSettings returns cfg with its secret key masked, ready to be shown.
func MaskSettings(cfg repo.GlobalConfig) repo.GlobalConfig {
	cfg.Exchange.SecretKey = MaskSecret(cfg.Exchange.SecretKey)
	return cfg
}

func (s *Service) Settings(ctx context.Context) (repo.GlobalConfig, error) {
	return s.settingRepo.GlobalConfig(ctx)
}

// SaveSettings only affects workers started afterwards. A masked secret key
// (as returned to the UI) keeps the stored one.
func (s *Service) SaveSettings(ctx context.Context, cfg repo.GlobalConfig) error {
	if isMasked(cfg.Exchange.SecretKey) {
		old, err := s.settingRepo.GlobalConfig(ctx)
		if err != nil {
			return err
		}
		cfg.Exchange.SecretKey = old.Exchange.SecretKey
	}
	return s.settingRepo.SaveGlobalConfig(ctx, cfg)
}
