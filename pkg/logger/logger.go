package logger

import (
	"log"

	"go.uber.org/zap"
)

// Log 全局日志实例
var Log *zap.Logger

// Init 初始化 zap 日志
// debug 模式下使用开发配置（彩色、易读），生产使用 JSON 结构化输出
func Init(debug bool) {
	var (
		l   *zap.Logger
		err error
	)

	if debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	Log = l
}

// Sync 刷新缓冲区，程序退出前调用
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
