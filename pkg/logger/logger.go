/*
 * @Author: AsisYu 2773943729@qq.com
 * @Date: 2025-12-30
 * @Description: 统一日志系统 - 基于uber-go/zap，文件输出由lumberjack切割
 */

package logger

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// base 是全局zap logger实例
	base *zap.Logger
	// sugar 是全局SugaredLogger实例，支持printf风格
	sugar *zap.SugaredLogger
	// rotator 日志文件切割器，未配置文件输出时为nil
	rotator *lumberjack.Logger
)

// ContextKey 用于从context中获取request ID
type ContextKey string

const RequestIDKey ContextKey = "request_id"

// Options 日志初始化参数
type Options struct {
	Env     string // "dev" 彩色控制台输出，其余为JSON
	LogFile string // 为空时只输出到控制台
}

// Init 初始化全局logger
func Init(opts Options) error {
	var encoderCfg zapcore.EncoderConfig
	var encoder zapcore.Encoder
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)

	if isDev(opts.Env) {
		// 开发模式：易读的控制台格式
		encoderCfg = zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		level.SetLevel(zapcore.DebugLevel)
	} else {
		// 生产模式：JSON格式，便于日志聚合
		encoderCfg = zap.NewProductionEncoderConfig()
	}

	// 统一时间格式
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.CallerKey = "caller"
	encoderCfg.FunctionKey = "func"

	if isDev(opts.Env) {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level),
	}

	if opts.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(opts.LogFile), 0755); err != nil {
			return err
		}
		rotator = &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    100,  // 每个日志文件最大大小，单位为MB
			MaxBackups: 30,   // 保留的旧日志文件最大数量
			MaxAge:     90,   // 保留旧日志文件的最大天数
			Compress:   true, // 压缩旧的日志文件
			LocalTime:  true,
		}
		// 文件始终使用JSON格式，不带颜色码
		fileCfg := encoderCfg
		fileCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(rotator), level))
	}

	// AddCallerSkip(1) 跳过logger包装层，显示真实调用位置
	l := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)

	base = l
	sugar = l.Sugar()

	// 向后兼容：重定向标准库log到zap
	stdLog := zap.NewStdLog(l)
	log.SetOutput(stdLog.Writer())
	log.SetFlags(0)

	// gin的默认输出也走zap
	gin.DefaultWriter = stdLog.Writer()

	return nil
}

func isDev(env string) bool {
	return env == "dev" || env == "development"
}

// Module 创建带模块名称的logger
// 用法: logger.Module("Lookup").Infof("query %s", domain)
func Module(name string) *zap.SugaredLogger {
	if sugar == nil {
		// 未初始化时不输出，测试中也不会刷屏
		return zap.NewNop().Sugar().Named(name)
	}
	return sugar.Named(name)
}

// WithRequest 从Gin context中获取request ID并创建带request_id字段的logger
func WithRequest(c *gin.Context, moduleName string) *zap.SugaredLogger {
	l := Module(moduleName)

	if requestID, exists := c.Get("request_id"); exists {
		l = l.With("request_id", requestID)
	}

	return l.With("client_ip", c.ClientIP())
}

// FromContext 从标准context.Context中获取request ID
func FromContext(ctx context.Context, moduleName string) *zap.SugaredLogger {
	l := Module(moduleName)

	if requestID := ctx.Value(RequestIDKey); requestID != nil {
		l = l.With("request_id", requestID)
	}

	return l
}

// Sync 刷新日志缓冲区并关闭日志文件，程序退出前调用
func Sync() {
	if base != nil {
		_ = base.Sync()
	}
	if rotator != nil {
		_ = rotator.Close()
	}
}

// DeriveEnvironment 根据环境变量推导运行环境
func DeriveEnvironment() string {
	if ginMode := os.Getenv("GIN_MODE"); ginMode != "" {
		if ginMode == "release" {
			return "production"
		}
		return "dev"
	}

	if env := os.Getenv("APP_ENV"); env != "" {
		return env
	}

	return "dev"
}
