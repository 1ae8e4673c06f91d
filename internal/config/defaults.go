package config

// DefaultBaseURL is the asset store root used when none is configured.
const DefaultBaseURL = "https://your-bucket.s3.amazonaws.com/audio/"

// Default returns the built-in configuration. It matches sample_config.toml.
func Default() Config {
	return Config{
		Source: Source{
			BaseURL: DefaultBaseURL,
		},
		HTTP: HTTP{
			FetchTimeout:       "15s",
			ProbeTimeout:       "30s",
			UserAgent:          "archiveplayer",
			MaxProbeDownloadMB: 512,
		},
		Player: Player{
			ProgressInterval: "500ms",
			DefaultSpan:      "5m",
			InitialVolume:    1.0,
			SampleRate:       44100,
			Buffer:           "100ms",
		},
		Server: Server{
			Addr:        "127.0.0.1:8420",
			CORSOrigins: []string{"http://localhost:3000"},
			RateLimit:   10,
			RateBurst:   20,
		},
		Logging: Logging{
			Level:  "info",
			Format: "auto",
		},
	}
}
