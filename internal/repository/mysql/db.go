package mysql

import (
	"log"
	"sync"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/config"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/menuitem"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/order"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/payment"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/table"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/user"
)

var (
	db   *gorm.DB
	once sync.Once
)

// Init 初始化全局 GORM 实例并自动迁移表结构
func Init(cfg *config.MySQLConfig) *gorm.DB {
	once.Do(func() {
		var err error
		// TranslateError 让唯一键冲突映射为 gorm.ErrDuplicatedKey，支付唯一约束依赖它
		db, err = gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{TranslateError: true})
		if err != nil {
			log.Fatalf("failed to connect mysql: %v", err)
		}

		if err = db.AutoMigrate(
			&user.User{},
			&menuitem.MenuItem{},
			&table.Table{},
			&order.Order{},
			&order.OrderItem{},
			&payment.Payment{},
		); err != nil {
			log.Fatalf("auto migrate failed: %v", err)
		}

		// 同一订单最多一条未删除支付记录：唯一约束在存储层关死“先查后插”的并发窗口，
		// 不依赖服务层检查。
		if err = db.Exec(
			"CREATE UNIQUE INDEX idx_payments_active_order ON payments (order_id, is_deleted)",
		).Error; err != nil {
			// 已存在时忽略
			log.Printf("create payment unique index: %v", err)
		}
	})
	return db
}

// DB 获取全局 DB
func DB() *gorm.DB {
	return db
}
