package main

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/config"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/menuitem"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/order"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/table"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/user"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/logger"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/ordernum"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/pricing"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/repository/mysql"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/service"
)

// 开发环境初始数据：账号、桌台、菜单和一笔演示订单。
// 重复执行时已存在的记录会因唯一约束被跳过。
func main() {
	logger.Init()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db := mysql.Init(&cfg.MySQL)
	ctx := context.Background()

	userRepo := mysql.NewUserRepository(db)
	menuRepo := mysql.NewMenuItemRepository(db)
	tableRepo := mysql.NewTableRepository(db)
	orderRepo := mysql.NewOrderRepository(db)

	userSvc := service.NewUserService(userRepo, &cfg.JWT)

	// ---------- 账号 ----------

	staff := []struct {
		username string
		password string
		role     user.Role
	}{
		{"admin", "admin123", user.RoleAdmin},
		{"manager", "manager123", user.RoleManager},
		{"chef", "chef123", user.RoleStaff},
	}
	for _, s := range staff {
		if _, err := userSvc.CreateStaff(ctx, s.username, s.password, s.role); err != nil {
			log.Printf("skip user %s: %v", s.username, err)
		} else {
			log.Printf("created %s account %q", s.role, s.username)
		}
	}

	demo, err := userSvc.Register(ctx, "demo", "demo123")
	if err != nil {
		log.Printf("skip user demo: %v", err)
		if demo, err = userRepo.GetByUsername(ctx, "demo"); err != nil {
			log.Fatalf("load demo user: %v", err)
		}
	}

	// ---------- 桌台 ----------

	tables := []*table.Table{
		{TableNumber: "T1", Capacity: 2, Location: "靠窗", IsAvailable: true},
		{TableNumber: "T2", Capacity: 4, Location: "大厅", IsAvailable: true},
		{TableNumber: "T3", Capacity: 4, Location: "大厅", IsAvailable: true},
		{TableNumber: "T4", Capacity: 8, Location: "包间", IsAvailable: true},
	}
	for _, t := range tables {
		if err := tableRepo.Create(ctx, t); err != nil {
			log.Printf("skip table %s: %v", t.TableNumber, err)
		}
	}

	// ---------- 菜单 ----------

	items := []*menuitem.MenuItem{
		{Name: "Koshari", Description: "Rice, lentils and pasta with spicy tomato sauce", Price: decimal.RequireFromString("45.00"), PreparationTime: 15, IsAvailable: true},
		{Name: "Grilled Chicken", Description: "Half chicken with garlic sauce", Price: decimal.RequireFromString("120.00"), PreparationTime: 25, IsAvailable: true},
		{Name: "Molokhia", Description: "With rice and bread", Price: decimal.RequireFromString("60.00"), PreparationTime: 20, IsAvailable: true},
		{Name: "Falafel Plate", Description: "Six pieces with tahini", Price: decimal.RequireFromString("30.00"), PreparationTime: 10, IsAvailable: true},
		{Name: "Mango Juice", Description: "Fresh squeezed", Price: decimal.RequireFromString("25.00"), PreparationTime: 5, IsAvailable: true},
		{Name: "Baklava", Description: "Pistachio, two pieces", Price: decimal.RequireFromString("35.00"), PreparationTime: 5, IsAvailable: true},
	}
	for _, m := range items {
		if err := menuRepo.Create(ctx, m); err != nil {
			log.Printf("skip menu item %s: %v", m.Name, err)
		}
	}

	// ---------- 演示订单（已送达，供营收报表有数据可看）----------

	now := time.Now().UTC()
	completed := now.Add(-30 * time.Minute)
	o := &order.Order{
		OrderNumber: ordernum.SeedNumber(now),
		CustomerID:  demo.ID,
		OrderType:   order.TypeTakeaway,
		Status:      order.StatusDelivered,
		OrderDate:   now.Add(-time.Hour),
		CompletedAt: &completed,
		Items: []order.OrderItem{
			{MenuItemID: items[0].ID, Quantity: 2, UnitPrice: items[0].Price},
			{MenuItemID: items[4].ID, Quantity: 1, UnitPrice: items[4].Price},
		},
	}
	pricing.Apply(o)
	if err := orderRepo.Create(ctx, o); err != nil {
		log.Printf("skip demo order: %v", err)
	} else {
		log.Printf("created demo order %s, total %s", o.OrderNumber, o.Total)
	}

	log.Println("seed finished")
}
