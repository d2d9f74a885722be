package worker

import (
	"log"
	"time"

	"health_mall/internal/pkg/notification"
)

// NotifyKind 通知类型
type NotifyKind int

const (
	NotifyConfirmation NotifyKind = iota
	NotifyCancellation
)

// NotifyTask 通知发送任务
type NotifyTask struct {
	Kind    NotifyKind
	Phone   string
	Summary notification.OrderSummary
	Retry   int // 重试次数
}

// NotifyPool 通知发送协程池
// 结算路径只负责入队，发送失败在池内重试，绝不反向影响订单状态
type NotifyPool struct {
	TaskQueue  chan NotifyTask
	RetryQueue chan NotifyTask
	Sender     notification.Service
	WorkerNum  int
	MaxRetry   int
}

func NewNotifyPool(sender notification.Service, workerNum int, bufferSize int) *NotifyPool {
	return &NotifyPool{
		TaskQueue:  make(chan NotifyTask, bufferSize),
		RetryQueue: make(chan NotifyTask, bufferSize/2),
		Sender:     sender,
		WorkerNum:  workerNum,
		MaxRetry:   3, // 最多重试3次
	}
}

func (p *NotifyPool) Start() {
	for i := 0; i < p.WorkerNum; i++ {
		go p.worker(i)
	}
	// 启动重试处理协程
	go p.retryWorker()
	log.Printf("Notify pool started with %d workers", p.WorkerNum)
}

func (p *NotifyPool) worker(id int) {
	for task := range p.TaskQueue {
		if err := p.processTask(task); err != nil {
			log.Printf("[Worker %d] Failed to send notification (order: %s): %v",
				id, task.Summary.OrderNo, err)

			// 如果未达到最大重试次数，加入重试队列
			if task.Retry < p.MaxRetry {
				task.Retry++
				select {
				case p.RetryQueue <- task:
				default:
					log.Printf("[Worker %d] Retry queue full, task dropped: %+v", id, task)
					p.logFailedTask(task, err)
				}
			} else {
				p.logFailedTask(task, err)
			}
		}
	}
}

func (p *NotifyPool) retryWorker() {
	for task := range p.RetryQueue {
		// 延迟重试，避免立即重试
		time.Sleep(time.Duration(task.Retry) * time.Second)

		select {
		case p.TaskQueue <- task:
		default:
			log.Printf("[RetryWorker] Main queue full, task dropped: %+v", task)
			p.logFailedTask(task, nil)
		}
	}
}

func (p *NotifyPool) processTask(task NotifyTask) error {
	if p.Sender == nil {
		return nil // 未配置短信服务，静默跳过
	}

	switch task.Kind {
	case NotifyCancellation:
		return p.Sender.SendCancellation(task.Phone, task.Summary)
	default:
		return p.Sender.SendConfirmation(task.Phone, task.Summary)
	}
}

func (p *NotifyPool) logFailedTask(task NotifyTask, err error) {
	// 达到重试上限的任务记入日志供人工处理
	log.Printf("[DeadLetter] Notification failed permanently: order=%s, phone=%s, err=%v",
		task.Summary.OrderNo, task.Phone, err)
}

func (p *NotifyPool) AddTask(task NotifyTask) {
	select {
	case p.TaskQueue <- task:
		// 任务入队成功
	default:
		log.Printf("Notify pool queue full, dropping task: %+v", task)
		p.logFailedTask(task, nil)
	}
}
