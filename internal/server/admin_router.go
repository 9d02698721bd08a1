package server

import (
	"fmt"
	"time"

	"github.com/kataras/iris/v12"
	"github.com/shopspring/decimal"

	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/auth"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/config"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/menuitem"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/order"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/table"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/user"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/infra/gateway"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/infra/mq"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/infra/redis"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/ordernum"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/repository/mysql"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/service"
)

// RegisterAdminRoutes 注册后台管理端的 HTTP 路由
// 端口通常是 8081，与顾客端服务分离。
func RegisterAdminRoutes(app *iris.Application, cfg *config.Config) {
	// 初始化基础设施
	db := mysql.Init(&cfg.MySQL)
	redisClient := redis.Init(&cfg.Redis)
	mqConn := mq.Init(&cfg.RabbitMQ)

	// 仓储与服务
	userRepo := mysql.NewUserRepository(db)
	menuRepo := mysql.NewMenuItemRepository(db)
	tableRepo := mysql.NewTableRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	payRepo := mysql.NewPaymentRepository(db)

	gen := ordernum.NewGenerator(ordernum.NewRedisSequencer(redisClient))

	userSvc := service.NewUserService(userRepo, &cfg.JWT)
	menuSvc := service.NewMenuService(menuRepo)
	tableSvc := service.NewTableService(tableRepo)
	orderSvc := service.NewOrderService(orderRepo, menuRepo, tableRepo, gen, mqConn)
	paySvc := service.NewPaymentService(payRepo, orderRepo, gateway.NewSandbox(), &cfg.Payment)

	ring := auth.NewConsistentHashRing(cfg.Auth.Nodes, cfg.Auth.HashReplicas)
	tokenCache := auth.NewTokenCache(redisClient, ring,
		time.Duration(cfg.Auth.TokenCacheTTLSeconds)*time.Second)

	api := app.Party("/api")

	api.Post("/login", func(ctx iris.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		token, err := userSvc.Login(ctx.Request().Context(), req.Username, req.Password)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"token": token})
	})

	// 后台接口一律要求 manager/admin
	mgmt := api.Party("/", authMiddleware(cfg, tokenCache), requireRoles(user.RoleManager, user.RoleAdmin))

	// ---------- 账号管理 ----------

	// 创建后台账号（manager/staff），仅 admin 可用
	mgmt.Post("/staff", requireRoles(user.RoleAdmin), func(ctx iris.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		u, err := userSvc.CreateStaff(ctx.Request().Context(), req.Username, req.Password, user.Role(req.Role))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"id": u.ID, "username": u.Username, "role": u.Role})
	})

	// ---------- 菜单管理 ----------

	mgmt.Get("/menu-items", func(ctx iris.Context) {
		list, err := menuSvc.ListAll(ctx.Request().Context())
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	mgmt.Post("/menu-items", func(ctx iris.Context) {
		var req menuItemRequest
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		m := &menuitem.MenuItem{IsAvailable: true}
		if err := req.applyTo(m); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := menuSvc.Create(ctx.Request().Context(), m); err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, m)
	})

	mgmt.Put("/menu-items/{id:uint64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetUint64("id")
		m, err := menuSvc.GetByID(ctx.Request().Context(), int64(id))
		if err != nil {
			fail(ctx, err)
			return
		}
		var req menuItemRequest
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := req.applyTo(m); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := menuSvc.Update(ctx.Request().Context(), m); err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, m)
	})

	mgmt.Delete("/menu-items/{id:uint64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetUint64("id")
		if err := menuSvc.Delete(ctx.Request().Context(), int64(id)); err != nil {
			fail(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "deleted"})
	})

	// 开市前清零当日销量并恢复上架
	mgmt.Post("/menu-items/reset-daily", func(ctx iris.Context) {
		if err := menuSvc.ResetDailyCounts(ctx.Request().Context()); err != nil {
			fail(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "daily counts reset"})
	})

	// ---------- 桌台管理 ----------

	mgmt.Get("/tables", func(ctx iris.Context) {
		list, err := tableSvc.ListAll(ctx.Request().Context())
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	mgmt.Post("/tables", func(ctx iris.Context) {
		var req tableRequest
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		t := &table.Table{IsAvailable: true}
		if err := req.applyTo(t); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := tableSvc.Create(ctx.Request().Context(), t); err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, t)
	})

	mgmt.Put("/tables/{id:uint64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetUint64("id")
		t, err := tableSvc.GetByID(ctx.Request().Context(), int64(id))
		if err != nil {
			fail(ctx, err)
			return
		}
		var req tableRequest
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := req.applyTo(t); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := tableSvc.Update(ctx.Request().Context(), t); err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, t)
	})

	mgmt.Delete("/tables/{id:uint64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetUint64("id")
		if err := tableSvc.Delete(ctx.Request().Context(), int64(id)); err != nil {
			fail(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "deleted"})
	})

	// 桌台上未完结的订单，空桌时 data 为 null
	mgmt.Get("/tables/{id:uint64}/active-order", func(ctx iris.Context) {
		id, _ := ctx.Params().GetUint64("id")
		o, err := orderSvc.ActiveOrderForTable(ctx.Request().Context(), int64(id))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, o)
	})

	mgmt.Put("/tables/{id:uint64}/availability", func(ctx iris.Context) {
		id, _ := ctx.Params().GetUint64("id")
		var req struct {
			Available bool `json:"available"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := tableSvc.SetAvailable(ctx.Request().Context(), int64(id), req.Available); err != nil {
			fail(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "updated"})
	})

	// ---------- 订单管理 ----------

	mgmt.Get("/orders", func(ctx iris.Context) {
		list, err := orderSvc.ListAll(ctx.Request().Context())
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	mgmt.Get("/orders/today", func(ctx iris.Context) {
		list, err := orderSvc.ListToday(ctx.Request().Context())
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	mgmt.Get("/orders/status/{status:int}", func(ctx iris.Context) {
		s, _ := ctx.Params().GetInt("status")
		list, err := orderSvc.ListByStatus(ctx.Request().Context(), order.Status(s))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	// 按日期区间查询，start/end 支持常见时间格式
	mgmt.Get("/orders/range", func(ctx iris.Context) {
		start, err := parseAdminTime(ctx.URLParam("start"))
		if err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": "invalid start: " + err.Error()})
			return
		}
		end, err := parseAdminTime(ctx.URLParam("end"))
		if err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": "invalid end: " + err.Error()})
			return
		}
		list, err := orderSvc.ListByDateRange(ctx.Request().Context(), start, end)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	mgmt.Get("/orders/today/count", func(ctx iris.Context) {
		n, err := orderSvc.CountToday(ctx.Request().Context())
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"count": n})
	})

	// 按订单号查询（小票/客诉场景）
	mgmt.Get("/orders/number/{number:string}", func(ctx iris.Context) {
		o, err := orderSvc.GetOrderByNumber(ctx.Request().Context(), ctx.Params().GetString("number"))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, o)
	})

	mgmt.Get("/orders/{id:uint64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetUint64("id")
		o, err := orderSvc.GetOrder(ctx.Request().Context(), int64(id))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, o)
	})

	// 管理端推进状态，可达范围仍由流转表约束
	mgmt.Put("/orders/{id:uint64}/status", func(ctx iris.Context) {
		id, _ := ctx.Params().GetUint64("id")
		var req struct {
			Status int `json:"status"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		err := orderSvc.UpdateOrderStatus(ctx.Request().Context(), int64(id), currentRole(ctx), order.Status(req.Status))
		if err != nil {
			fail(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "updated"})
	})

	// 逻辑删除，保留审计记录
	mgmt.Delete("/orders/{id:uint64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetUint64("id")
		if err := orderSvc.DeleteOrder(ctx.Request().Context(), int64(id)); err != nil {
			fail(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "deleted"})
	})

	// 已送达订单营收合计，start/end 可省略
	mgmt.Get("/revenue", func(ctx iris.Context) {
		var start, end *time.Time
		if v := ctx.URLParam("start"); v != "" {
			t, err := parseAdminTime(v)
			if err != nil {
				ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": "invalid start: " + err.Error()})
				return
			}
			start = &t
		}
		if v := ctx.URLParam("end"); v != "" {
			t, err := parseAdminTime(v)
			if err != nil {
				ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": "invalid end: " + err.Error()})
				return
			}
			end = &t
		}
		total, err := orderSvc.Revenue(ctx.Request().Context(), start, end)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"total": total, "currency": cfg.Payment.Currency})
	})

	// ---------- 支付管理 ----------

	mgmt.Get("/payments/{id:uint64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetUint64("id")
		p, err := paySvc.GetPayment(ctx.Request().Context(), int64(id))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, p)
	})

	mgmt.Post("/payments/{id:uint64}/refund", func(ctx iris.Context) {
		id, _ := ctx.Params().GetUint64("id")
		var req struct {
			Reason string `json:"reason"`
		}
		_ = ctx.ReadJSON(&req)
		if err := paySvc.RefundPayment(ctx.Request().Context(), int64(id), req.Reason); err != nil {
			fail(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "refunded"})
	})

	// ---------- 运行指标 ----------

	mgmt.Get("/monitor/stats", func(ctx iris.Context) {
		ok(ctx, service.GetMonitor().GetStats())
	})

	mgmt.Post("/monitor/reset", requireRoles(user.RoleAdmin), func(ctx iris.Context) {
		service.GetMonitor().Reset()
		ctx.JSON(iris.Map{"code": 0, "msg": "reset"})
	})
}

// ---- 辅助结构与函数 ----

type menuItemRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Price           string `json:"price"`
	IsAvailable     *bool  `json:"is_available"`
	PreparationTime int    `json:"preparation_time"`
	CategoryID      *int64 `json:"category_id"`
}

func (r *menuItemRequest) applyTo(m *menuitem.MenuItem) error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return fmt.Errorf("invalid price: %s", r.Price)
	}
	if !price.IsPositive() {
		return fmt.Errorf("price must be positive")
	}
	m.Name = r.Name
	m.Description = r.Description
	m.Price = price
	if r.IsAvailable != nil {
		m.IsAvailable = *r.IsAvailable
	}
	if r.PreparationTime > 0 {
		m.PreparationTime = r.PreparationTime
	}
	if r.CategoryID != nil {
		m.CategoryID = r.CategoryID
	}
	return nil
}

type tableRequest struct {
	TableNumber string `json:"table_number"`
	Capacity    int    `json:"capacity"`
	Location    string `json:"location"`
	IsAvailable *bool  `json:"is_available"`
}

func (r *tableRequest) applyTo(t *table.Table) error {
	if r.TableNumber == "" {
		return fmt.Errorf("table_number is required")
	}
	if r.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive")
	}
	t.TableNumber = r.TableNumber
	t.Capacity = r.Capacity
	t.Location = r.Location
	if r.IsAvailable != nil {
		t.IsAvailable = *r.IsAvailable
	}
	return nil
}

// 支持多种常见时间格式，精确到秒
func parseAdminTime(v string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time format: %s", v)
}
