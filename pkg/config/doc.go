// Package config loads flowio settings from defaults, a YAML file and
// FLOWIO_* environment variables, and turns them into component configs.
//
//	cfg, err := config.Load("flowio.yaml")
//	logger, err := cfg.Log.NewLogger()
//	w := writable.New(handle, cfg.WritableConfig("upload", logger, reg))
//
// Environment keys join the yaml sections in upper case:
// FLOWIO_WRITABLE_HIGH_WATER_MARK=65536, FLOWIO_REDIS_BLOCK_TIMEOUT=250ms.
package config
