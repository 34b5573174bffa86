package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the application configuration
type Config struct {
	Converter ConverterConfig `json:"converter"`
	Quality   QualityConfig   `json:"quality"`
	Estimator EstimatorConfig `json:"estimator"`
}

// ConverterConfig holds defaults for dataset conversion
type ConverterConfig struct {
	TrainRatio float64 `json:"train_ratio"`
	CopyImages bool    `json:"copy_images"`
	// Seeded fixes the train/val shuffle with Seed; when false every run
	// draws a fresh shuffle.
	Seeded bool  `json:"seeded"`
	Seed   int64 `json:"seed"`
}

// QualityConfig holds thresholds for the image quality checker
type QualityConfig struct {
	MinWidth      int     `json:"min_width"`
	MinHeight     int     `json:"min_height"`
	BrightnessMin float64 `json:"brightness_min"`
	BrightnessMax float64 `json:"brightness_max"`
	ContrastMin   float64 `json:"contrast_min"`
	BlurThreshold float64 `json:"blur_threshold"`
}

// EstimatorConfig holds defaults for sample-size estimation
type EstimatorConfig struct {
	Target    string `json:"target"`
	ImageSize int    `json:"image_size"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Converter: ConverterConfig{
			TrainRatio: 0.8,
			CopyImages: true,
		},
		Quality: QualityConfig{
			MinWidth:      320,
			MinHeight:     320,
			BrightnessMin: 30,
			BrightnessMax: 225,
			ContrastMin:   20,
			BlurThreshold: 100,
		},
		Estimator: EstimatorConfig{
			Target:    "70",
			ImageSize: 640,
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Converter.TrainRatio <= 0 || c.Converter.TrainRatio >= 1 {
		return fmt.Errorf("converter.train_ratio must be between 0 and 1 exclusive")
	}

	if c.Quality.MinWidth < 1 || c.Quality.MinHeight < 1 {
		return fmt.Errorf("quality.min_width and quality.min_height must be positive")
	}

	if c.Quality.BrightnessMin < 0 || c.Quality.BrightnessMax > 255 ||
		c.Quality.BrightnessMin >= c.Quality.BrightnessMax {
		return fmt.Errorf("quality brightness range must satisfy 0 <= min < max <= 255")
	}

	if c.Quality.ContrastMin < 0 {
		return fmt.Errorf("quality.contrast_min must not be negative")
	}

	if c.Quality.BlurThreshold < 0 {
		return fmt.Errorf("quality.blur_threshold must not be negative")
	}

	switch c.Estimator.Target {
	case "60", "70", "80":
	default:
		return fmt.Errorf("estimator.target must be one of 60, 70, 80")
	}

	switch c.Estimator.ImageSize {
	case 320, 640, 1280:
	default:
		return fmt.Errorf("estimator.image_size must be one of 320, 640, 1280")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "dataset-converter", "config.json")
}
