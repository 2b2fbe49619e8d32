/*
 * @Author: AsisYu 2773943729@qq.com
 * @Date: 2025-04-29 12:15:00
 * @Description: 健康检查服务
 */
package services

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"whoiskit/pkg/logger"
)

const DefaultHealthCheckInterval = 5 * time.Minute

// HealthChecker 定期检查Redis和各WHOIS服务器熔断器状态
type HealthChecker struct {
	rdb      *redis.Client
	lookup   *LookupService
	interval time.Duration

	stopChan         chan struct{}
	stopOnce         sync.Once
	mutex            sync.RWMutex
	lastCheckTime    time.Time
	lastCheckResults map[string]interface{}
}

// NewHealthChecker 创建健康检查器，interval<=0时使用默认间隔
func NewHealthChecker(rdb *redis.Client, lookup *LookupService, interval time.Duration) *HealthChecker {
	if interval <= 0 {
		interval = DefaultHealthCheckInterval
	}
	return &HealthChecker{
		rdb:              rdb,
		lookup:           lookup,
		interval:         interval,
		stopChan:         make(chan struct{}),
		lastCheckResults: make(map[string]interface{}),
	}
}

// Start 开始定期健康检查
func (hc *HealthChecker) Start() {
	log := logger.Module("Health")
	log.Infof("启动定期健康检查服务，检查间隔: %v", hc.interval)

	hc.RunHealthCheck()

	go func() {
		ticker := time.NewTicker(hc.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				hc.RunHealthCheck()
			case <-hc.stopChan:
				log.Info("健康检查服务已停止")
				return
			}
		}
	}()
}

// Stop 停止定期健康检查
func (hc *HealthChecker) Stop() {
	hc.stopOnce.Do(func() {
		close(hc.stopChan)
	})
}

// RunHealthCheck 执行一次完整的健康检查
func (hc *HealthChecker) RunHealthCheck() {
	startTime := time.Now()
	servicesMap := map[string]interface{}{
		"redis": hc.checkRedis(),
		"whois": hc.checkWhois(),
	}

	overall := "up"
	for _, svc := range servicesMap {
		status, _ := svc.(map[string]interface{})["status"].(string)
		if status == "down" || status == "degraded" {
			overall = "degraded"
		}
	}

	hc.mutex.Lock()
	hc.lastCheckTime = time.Now()
	hc.lastCheckResults = map[string]interface{}{
		"status":    overall,
		"services":  servicesMap,
		"timestamp": hc.lastCheckTime.UTC().Format(time.RFC3339),
	}
	hc.mutex.Unlock()

	logger.Module("Health").Infof("健康检查完成: 状态=%s, 耗时=%v", overall, time.Since(startTime))
}

func (hc *HealthChecker) checkRedis() map[string]interface{} {
	if hc.rdb == nil {
		return map[string]interface{}{"status": "disabled"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	if err := hc.rdb.Ping(ctx).Err(); err != nil {
		return map[string]interface{}{
			"status": "down",
			"error":  err.Error(),
		}
	}
	return map[string]interface{}{
		"status":    "up",
		"latencyMs": time.Since(start).Milliseconds(),
	}
}

// checkWhois 任一服务器熔断即视为降级
func (hc *HealthChecker) checkWhois() map[string]interface{} {
	if hc.lookup == nil {
		return map[string]interface{}{"status": "disabled"}
	}

	breakers := hc.lookup.BreakerStatus()
	open := 0
	for _, status := range breakers {
		if status.State == StateOpen.String() {
			open++
		}
	}

	status := "up"
	if open > 0 {
		status = "degraded"
	}
	return map[string]interface{}{
		"status":   status,
		"servers":  len(breakers),
		"open":     open,
		"breakers": breakers,
	}
}

// GetHealthStatus 返回最近一次检查结果，从未检查过时立即执行一次
func (hc *HealthChecker) GetHealthStatus() map[string]interface{} {
	hc.mutex.RLock()
	checked := !hc.lastCheckTime.IsZero()
	hc.mutex.RUnlock()

	if !checked {
		hc.RunHealthCheck()
	}

	hc.mutex.RLock()
	defer hc.mutex.RUnlock()

	result := make(map[string]interface{}, len(hc.lastCheckResults))
	for k, v := range hc.lastCheckResults {
		result[k] = v
	}
	return result
}
