package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks struct tags plus the cross-field rules tags cannot
// express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	if cfg.Acquire.ImmediateRetries >= cfg.Acquire.AttemptCeiling {
		return fmt.Errorf("acquire.immediate_retries (%d) must be below acquire.attempt_ceiling (%d)",
			cfg.Acquire.ImmediateRetries, cfg.Acquire.AttemptCeiling)
	}

	for _, kp := range []struct {
		name   string
		policy KindPolicy
	}{
		{"film", cfg.Kinds.Film},
		{"episode", cfg.Kinds.Episode},
		{"short", cfg.Kinds.Short},
	} {
		if kp.policy.TargetMin > kp.policy.TargetMax {
			return fmt.Errorf("kinds.%s: target_min (%s) above target_max (%s)",
				kp.name, kp.policy.TargetMin, kp.policy.TargetMax)
		}
		if kp.policy.TargetIdeal < kp.policy.TargetMin || kp.policy.TargetIdeal > kp.policy.TargetMax {
			return fmt.Errorf("kinds.%s: target_ideal (%s) outside [%s, %s]",
				kp.name, kp.policy.TargetIdeal, kp.policy.TargetMin, kp.policy.TargetMax)
		}
		if kp.policy.TransformCeiling > 0 && kp.policy.MinBytes >= kp.policy.TransformCeiling {
			return fmt.Errorf("kinds.%s: min_bytes (%s) must be below transform_ceiling (%s)",
				kp.name, kp.policy.MinBytes, kp.policy.TransformCeiling)
		}
	}

	return nil
}
