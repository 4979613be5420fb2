package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrNoJobs はジョブファイルにジョブがない場合のエラー
var ErrNoJobs = errors.New("ジョブファイルにジョブがありません")

// JobFile はYAMLジョブファイルの内容です
//
//	defaults:
//	  output_dir: out
//	  variant: gms
//	  version: 83
//	jobs:
//	  - input: Base.wz
//	  - input: Map.wz
//	    output: out/Map.nx
//	    version: -1
type JobFile struct {
	Defaults JobDefaults `yaml:"defaults"`
	Jobs     []JobSpec   `yaml:"jobs"`
}

// JobDefaults は各ジョブで省略された項目の既定値です
type JobDefaults struct {
	OutputDir string `yaml:"output_dir"`
	Variant   string `yaml:"variant"`
	Version   *int   `yaml:"version"`
	Workers   int    `yaml:"workers"`
}

// JobSpec は1つの変換ジョブです
type JobSpec struct {
	Input   string `yaml:"input"`
	Output  string `yaml:"output"`
	Variant string `yaml:"variant"`
	Version *int   `yaml:"version"`
}

// LoadJobFile はジョブファイルを読み込みます
func LoadJobFile(path string) (*JobFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ジョブファイルを読み込めませんでした: %w", err)
	}
	return ParseJobFile(data)
}

// ParseJobFile はYAMLを解析します。input のないジョブはエラーです。
func ParseJobFile(data []byte) (*JobFile, error) {
	var jf JobFile
	if err := yaml.Unmarshal(data, &jf); err != nil {
		return nil, fmt.Errorf("ジョブファイルの解析に失敗しました: %w", err)
	}
	if len(jf.Jobs) == 0 {
		return nil, ErrNoJobs
	}
	for i, j := range jf.Jobs {
		if j.Input == "" {
			return nil, fmt.Errorf("ジョブ %d: input がありません", i+1)
		}
	}
	return &jf, nil
}

// Apply は cfg の値をジョブファイルの既定値で上書きします。
// コマンドラインで指定した値より既定値を優先します。
func (jf *JobFile) Apply(cfg *Config) {
	if jf.Defaults.OutputDir != "" {
		cfg.OutputDir = jf.Defaults.OutputDir
	}
	if jf.Defaults.Variant != "" {
		cfg.Variant = jf.Defaults.Variant
	}
	if jf.Defaults.Version != nil {
		cfg.GameVersion = *jf.Defaults.Version
	}
	if jf.Defaults.Workers > 0 {
		cfg.Workers = jf.Defaults.Workers
	}
}
