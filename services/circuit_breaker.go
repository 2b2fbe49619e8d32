/*
 * @Author: AsisYu 2773943729@qq.com
 * @Date: 2025-04-10 16:09:00
 * @Description: 熔断器模式实现
 */
package services

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen 熔断器开启，请求被拒绝
var ErrCircuitOpen = errors.New("circuit open")

// CircuitState 熔断器状态
type CircuitState int

const (
	StateClosed   CircuitState = iota // 关闭状态 - 正常工作
	StateOpen                         // 开启状态 - 熔断生效
	StateHalfOpen                     // 半开状态 - 尝试恢复
)

// String 熔断器状态的可读名称
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker 熔断器
type CircuitBreaker struct {
	state            CircuitState
	failureCount     int
	failureThreshold int
	resetTimeout     time.Duration
	lastFailureTime  time.Time
	mutex            sync.Mutex
	onStateChange    func(from, to CircuitState)
}

// BreakerStatus 熔断器状态快照
type BreakerStatus struct {
	State            string `json:"state"`
	FailureCount     int    `json:"failureCount"`
	FailureThreshold int    `json:"failureThreshold"`
	ResetTimeout     string `json:"resetTimeout"`
	LastFailureTime  string `json:"lastFailureTime,omitempty"`
}

// NewCircuitBreaker 创建新的熔断器
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 1
	}
	return &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
	}
}

// OnStateChange 设置状态变化回调
func (cb *CircuitBreaker) OnStateChange(f func(from, to CircuitState)) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.onStateChange = f
}

// AllowRequest 判断是否允许请求通过
func (cb *CircuitBreaker) AllowRequest() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateOpen:
		// 到达重置时间后转为半开
		if time.Since(cb.lastFailureTime) > cb.resetTimeout {
			cb.setState(StateHalfOpen)
			return true
		}
		return false
	default:
		return true
	}
}

// RecordResult 记录请求结果
func (cb *CircuitBreaker) RecordResult(success bool) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if success {
		cb.failureCount = 0
		if cb.state == StateHalfOpen {
			cb.setState(StateClosed)
		}
		return
	}

	cb.lastFailureTime = time.Now()
	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.failureThreshold {
			cb.setState(StateOpen)
		}
	case StateHalfOpen:
		// 半开状态下失败立即重新熔断
		cb.setState(StateOpen)
	}
}

// State 当前状态
func (cb *CircuitBreaker) State() CircuitState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// Status 状态快照
func (cb *CircuitBreaker) Status() BreakerStatus {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	status := BreakerStatus{
		State:            cb.state.String(),
		FailureCount:     cb.failureCount,
		FailureThreshold: cb.failureThreshold,
		ResetTimeout:     cb.resetTimeout.String(),
	}
	if !cb.lastFailureTime.IsZero() {
		status.LastFailureTime = cb.lastFailureTime.UTC().Format(time.RFC3339)
	}
	return status
}

// setState 调用方需持有锁
func (cb *CircuitBreaker) setState(to CircuitState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if cb.onStateChange != nil {
		cb.onStateChange(from, to)
	}
}
