/*
 * @Author: AsisYu 2773943729@qq.com
 * @Date: 2025-04-10 16:08:00
 * @Description: 工作池模式实现，限制同时进行的WHOIS查询数量
 */
package services

import (
	"context"
	"sync"
)

// WorkerPool 工作池结构体
type WorkerPool struct {
	tasks   chan func()
	wg      sync.WaitGroup
	workers int

	mu      sync.RWMutex // 保护stopped，提交期间持有读锁，保证不会向已关闭的通道发送
	stopped bool
}

// NewWorkerPool 创建一个指定工作者数量的工作池
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	return &WorkerPool{
		tasks:   make(chan func(), workers*2), // 缓冲大小为工作者数量的两倍
		workers: workers,
	}
}

// Start 启动工作池
func (p *WorkerPool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}
}

// Submit 提交任务，队列已满或已停止时立即返回false
func (p *WorkerPool) Submit(task func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return false
	}

	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

// SubmitWithContext 提交任务，队列已满时等待直到ctx结束，已停止时返回false
func (p *WorkerPool) SubmitWithContext(ctx context.Context, task func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return false
	}

	select {
	case p.tasks <- task:
		return true
	case <-ctx.Done():
		return false
	}
}

// Size 工作者数量
func (p *WorkerPool) Size() int {
	return p.workers
}

// Stop 停止工作池，等待已提交任务完成，可重复调用
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}
