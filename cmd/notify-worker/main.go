package main

import (
	"encoding/json"
	"fmt"
	"log"

	radix "github.com/mediocregopher/radix/v3"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/config"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/infra/mq"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/infra/redis"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/logger"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/service"
)

const (
	orderEventQueue = "order_events"
	// 幂等标记：同一订单的同一事件只通知一次
	notifyMarkKey           = "notify:done:%d:%s:%s" // orderID, type, status
	notifyMarkExpireSeconds = 86400
)

func main() {
	logger.Init()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	mqConn := mq.Init(&cfg.RabbitMQ)
	redisClient := redis.Init(&cfg.Redis)

	ch, err := mqConn.Channel()
	if err != nil {
		log.Fatalf("failed to open channel: %v", err)
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(orderEventQueue, true, false, false, false, nil); err != nil {
		log.Fatalf("failed to declare queue: %v", err)
	}

	// 手动确认模式（auto-ack=false）
	msgs, err := ch.Consume(orderEventQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("failed to consume: %v", err)
	}

	log.Println("notify worker started, waiting for order events...")

	for d := range msgs {
		var ev service.OrderEvent
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			log.Printf("invalid message: %v", err)
			// 消息格式错误，拒绝并丢弃
			_ = d.Nack(false, false)
			continue
		}
		handleEvent(redisClient, &ev, d)
	}
}

func handleEvent(redisClient radix.Client, ev *service.OrderEvent, d amqp.Delivery) {
	markKey := fmt.Sprintf(notifyMarkKey, ev.OrderID, ev.Type, ev.Status)

	var set int
	if err := redisClient.Do(radix.Cmd(&set, "SETNX", markKey, "1")); err != nil {
		// Redis 不可用时退化为至少一次通知
		log.Printf("set notify mark failed: %v", err)
		set = 1
	}
	if set == 0 {
		// 已通知过，直接确认
		_ = d.Ack(false)
		return
	}
	_ = redisClient.Do(radix.FlatCmd(nil, "EXPIRE", markKey, notifyMarkExpireSeconds))

	// 实际推送渠道（短信/推送/厨房大屏）在此接入，目前记录日志
	switch ev.Type {
	case "created":
		log.Printf("notify kitchen: new order %s (customer %d)", ev.OrderNumber, ev.CustomerID)
	case "status_changed":
		log.Printf("notify customer %d: order %s is now %s", ev.CustomerID, ev.OrderNumber, ev.Status)
	case "cancelled":
		log.Printf("notify kitchen: order %s cancelled", ev.OrderNumber)
	default:
		log.Printf("unknown order event type %q for order %s", ev.Type, ev.OrderNumber)
	}

	_ = d.Ack(false)
}
