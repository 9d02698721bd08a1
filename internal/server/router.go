package server

import (
	"strings"
	"time"

	"github.com/kataras/iris/v12"
	"github.com/shopspring/decimal"

	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/auth"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/config"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/order"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/payment"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/user"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/errs"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/infra/gateway"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/infra/mq"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/infra/redis"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/middleware"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/ordernum"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/repository/mysql"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/service"
)

// fail 统一错误响应，HTTP 状态码由错误类别映射
func fail(ctx iris.Context, err error) {
	status := errs.HTTPStatus(err)
	ctx.StopWithJSON(status, iris.Map{"code": status, "msg": errs.Message(err)})
}

func ok(ctx iris.Context, data interface{}) {
	ctx.JSON(iris.Map{"code": 0, "data": data})
}

// authMiddleware JWT 鉴权，解析结果经 Redis 缓存加速，claims 写入请求上下文
func authMiddleware(cfg *config.Config, cache *auth.TokenCache) iris.Handler {
	return func(ctx iris.Context) {
		token := strings.TrimPrefix(ctx.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "missing token"})
			return
		}

		claims, hit, _ := cache.Get(ctx.Request().Context(), token)
		if !hit {
			var err error
			claims, err = auth.ParseToken(&cfg.JWT, token)
			if err != nil {
				ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "invalid token"})
				return
			}
			_ = cache.Set(ctx.Request().Context(), token, claims)
		}

		ctx.Values().Set("user_id", claims.UserID)
		ctx.Values().Set("username", claims.Username)
		ctx.Values().Set("role", string(claims.Role))
		ctx.Next()
	}
}

// requireRoles 角色门禁，claims 里的角色不在白名单时拒绝
func requireRoles(roles ...user.Role) iris.Handler {
	allowed := make(map[user.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(ctx iris.Context) {
		role := user.Role(ctx.Values().GetString("role"))
		if !allowed[role] {
			ctx.StopWithJSON(403, iris.Map{"code": 403, "msg": "无权访问"})
			return
		}
		ctx.Next()
	}
}

func currentRole(ctx iris.Context) user.Role {
	return user.Role(ctx.Values().GetString("role"))
}

// RegisterRoutes 注册顾客端与厨房端的 HTTP 路由
func RegisterRoutes(app *iris.Application, cfg *config.Config) {
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

	// 健康检查
	api.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{
			"code": 0,
			"msg":  "ok",
		})
	})

	// 用户注册/登录
	api.Post("/register", func(ctx iris.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		u, err := userSvc.Register(ctx.Request().Context(), req.Username, req.Password)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"id": u.ID, "username": u.Username, "role": u.Role})
	})

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

	// 需要登录的接口
	authAPI := api.Party("/", authMiddleware(cfg, tokenCache))

	authAPI.Get("/profile", func(ctx iris.Context) {
		userID := ctx.Values().GetInt64Default("user_id", 0)
		u, err := userSvc.GetProfile(ctx.Request().Context(), userID)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"id": u.ID, "username": u.Username, "role": u.Role, "phone": u.Phone, "address": u.Address})
	})

	// 顾客端菜单，只返回可售菜品
	authAPI.Get("/menu", func(ctx iris.Context) {
		list, err := menuSvc.ListAvailable(ctx.Request().Context())
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	// 桌台一览（堂食点单时选桌）
	authAPI.Get("/tables", func(ctx iris.Context) {
		list, err := tableSvc.ListAll(ctx.Request().Context())
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	// ---------- 订单 ----------

	authAPI.Post("/orders", middleware.CreateOrderRateLimit(), func(ctx iris.Context) {
		var req struct {
			OrderType           int    `json:"order_type"`
			DeliveryAddress     string `json:"delivery_address"`
			SpecialInstructions string `json:"special_instructions"`
			TableID             *int64 `json:"table_id"`
			Items               []struct {
				MenuItemID          int64  `json:"menu_item_id"`
				Quantity            int    `json:"quantity"`
				SpecialInstructions string `json:"special_instructions"`
			} `json:"items"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}

		in := &service.CreateOrderInput{
			CustomerID:          ctx.Values().GetInt64Default("user_id", 0),
			OrderType:           order.Type(req.OrderType),
			DeliveryAddress:     req.DeliveryAddress,
			SpecialInstructions: req.SpecialInstructions,
			TableID:             req.TableID,
		}
		for _, it := range req.Items {
			in.Items = append(in.Items, service.CreateOrderItemInput{
				MenuItemID:          it.MenuItemID,
				Quantity:            it.Quantity,
				SpecialInstructions: it.SpecialInstructions,
			})
		}

		o, err := orderSvc.CreateOrder(ctx.Request().Context(), in)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, o)
	})

	authAPI.Get("/orders", func(ctx iris.Context) {
		userID := ctx.Values().GetInt64Default("user_id", 0)
		list, err := orderSvc.ListMyOrders(ctx.Request().Context(), userID)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	// 当前进行中的订单，没有时 data 为 null
	authAPI.Get("/orders/current", func(ctx iris.Context) {
		userID := ctx.Values().GetInt64Default("user_id", 0)
		o, err := orderSvc.GetCurrentActiveOrder(ctx.Request().Context(), userID)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, o)
	})

	authAPI.Get("/orders/{id:uint64}", func(ctx iris.Context) {
		oid, _ := ctx.Params().GetUint64("id")
		userID := ctx.Values().GetInt64Default("user_id", 0)
		o, err := orderSvc.GetOrderForCustomer(ctx.Request().Context(), int64(oid), userID)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, o)
	})

	authAPI.Post("/orders/{id:uint64}/cancel", func(ctx iris.Context) {
		oid, _ := ctx.Params().GetUint64("id")
		userID := ctx.Values().GetInt64Default("user_id", 0)
		var req struct {
			Reason string `json:"reason"`
		}
		_ = ctx.ReadJSON(&req)
		if err := orderSvc.CancelOrder(ctx.Request().Context(), int64(oid), userID, req.Reason); err != nil {
			fail(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "cancelled"})
	})

	// 待处理订单加菜，金额整体重算
	authAPI.Post("/orders/{id:uint64}/items", func(ctx iris.Context) {
		oid, _ := ctx.Params().GetUint64("id")
		userID := ctx.Values().GetInt64Default("user_id", 0)
		var req struct {
			MenuItemID          int64  `json:"menu_item_id"`
			Quantity            int    `json:"quantity"`
			SpecialInstructions string `json:"special_instructions"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		o, err := orderSvc.AddOrderItem(ctx.Request().Context(), int64(oid), userID, service.CreateOrderItemInput{
			MenuItemID:          req.MenuItemID,
			Quantity:            req.Quantity,
			SpecialInstructions: req.SpecialInstructions,
		})
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, o)
	})

	// 待处理订单撤菜
	authAPI.Delete("/orders/{id:uint64}/items/{itemID:uint64}", func(ctx iris.Context) {
		oid, _ := ctx.Params().GetUint64("id")
		itemID, _ := ctx.Params().GetUint64("itemID")
		userID := ctx.Values().GetInt64Default("user_id", 0)
		o, err := orderSvc.RemoveOrderItem(ctx.Request().Context(), int64(oid), userID, int64(itemID))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, o)
	})

	// ---------- 厨房端 ----------

	kitchen := authAPI.Party("/kitchen", requireRoles(user.RoleStaff, user.RoleManager, user.RoleAdmin))

	// 进行中订单，按下单先后正序
	kitchen.Get("/orders", func(ctx iris.Context) {
		list, err := orderSvc.ListKitchenOrders(ctx.Request().Context())
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	// 推进订单状态，角色可达的目标状态由流转表约束
	kitchen.Put("/orders/{id:uint64}/status", func(ctx iris.Context) {
		oid, _ := ctx.Params().GetUint64("id")
		var req struct {
			Status int `json:"status"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		err := orderSvc.UpdateOrderStatus(ctx.Request().Context(), int64(oid), currentRole(ctx), order.Status(req.Status))
		if err != nil {
			fail(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "updated"})
	})

	// ---------- 支付 ----------

	authAPI.Post("/payments", func(ctx iris.Context) {
		var req struct {
			OrderID  int64  `json:"order_id"`
			Method   int    `json:"method"`
			Amount   string `json:"amount"`
			Currency string `json:"currency"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": "invalid amount: " + req.Amount})
			return
		}
		userID := ctx.Values().GetInt64Default("user_id", 0)
		res, err := paySvc.CreatePayment(ctx.Request().Context(), userID, &service.CreatePaymentInput{
			OrderID:  req.OrderID,
			Method:   payment.Method(req.Method),
			Amount:   amount,
			Currency: req.Currency,
		})
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"payment": res.Payment, "client_secret": res.ClientSecret})
	})

	authAPI.Post("/payments/{id:uint64}/confirm", func(ctx iris.Context) {
		pid, _ := ctx.Params().GetUint64("id")
		p, err := paySvc.ConfirmPayment(ctx.Request().Context(), int64(pid))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, p)
	})

	// 订单上的有效支付记录，网关超时后用它查询真实结果
	authAPI.Get("/orders/{id:uint64}/payment", func(ctx iris.Context) {
		oid, _ := ctx.Params().GetUint64("id")
		userID := ctx.Values().GetInt64Default("user_id", 0)
		p, err := paySvc.GetOrderPayment(ctx.Request().Context(), userID, int64(oid))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, p)
	})

	authAPI.Get("/payments", func(ctx iris.Context) {
		userID := ctx.Values().GetInt64Default("user_id", 0)
		page := ctx.URLParamIntDefault("page", 1)
		pageSize := ctx.URLParamIntDefault("page_size", 20)
		list, err := paySvc.GetUserPayments(ctx.Request().Context(), userID, page, pageSize)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	authAPI.Get("/payments/{id:uint64}", func(ctx iris.Context) {
		pid, _ := ctx.Params().GetUint64("id")
		userID := ctx.Values().GetInt64Default("user_id", 0)
		p, err := paySvc.GetPayment(ctx.Request().Context(), int64(pid))
		if err != nil {
			fail(ctx, err)
			return
		}
		// 通过订单归属校验可见性，不暴露他人支付记录
		if _, err := orderSvc.GetOrderForCustomer(ctx.Request().Context(), p.OrderID, userID); err != nil {
			fail(ctx, errs.New(errs.KindNotFound, "支付记录不存在"))
			return
		}
		ok(ctx, p)
	})
}
