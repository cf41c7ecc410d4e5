// Package config provides loading and environment overlay for streamsync
// runtime configuration. It exposes a Default() baseline that Load and
// FromEnv refine.
//
// Example:
//
//	cfg, err := config.Load("/etc/streamsync.yaml")
//	if err != nil {
//	    return err
//	}
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	rt, _ := runtime.Open(runtime.Options{Config: cfg})
//	defer rt.Close()
package config
