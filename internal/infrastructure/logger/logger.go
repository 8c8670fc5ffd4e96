package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LevelEnv 日志级别环境变量，debug 级别会把快照刷新耗时也打出来
const LevelEnv = "FUNDARB_LOG"

// Setup 初始化全局 logger：控制台输出 + 环境变量控制级别
func Setup() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(ParseLevel(os.Getenv(LevelEnv)))
}

// ParseLevel 解析级别名，未知或为空回退 info
func ParseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(s)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
