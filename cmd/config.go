package main

import (
	"fmt"
	"time"
)

type Config struct {
	Host                      string        `env:"HOST,default=localhost"`
	Port                      int           `env:"PORT,default=8080"`
	LogLevel                  string        `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath            string        `env:"BADGER_FILEPATH,required=true"`
	JWTSecret                 string        `env:"JWT_SECRET,required=true"`
	AuthTimeout               time.Duration `env:"AUTH_TIMEOUT,default=5s"`
	ConnectionBufferSize      int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	RestartInterval           time.Duration `env:"RESTART_INTERVAL,default=3s"`
	StatsInterval             time.Duration `env:"STATS_INTERVAL,default=30s"`
	GCInterval                time.Duration `env:"GC_INTERVAL,default=10m"`
	ModerationWordsPath       string        `env:"MODERATION_WORDS_PATH"`
	ModerationCharReplacement string        `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`
}

// characterRune converts the single-character replacement setting.
func characterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
