package main

import (
	"log"

	"github.com/kataras/iris/v12"

	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/config"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/logger"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/server"
)

func main() {
	logger.Init()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	app := iris.New()
	server.RegisterRoutes(app, cfg)

	addr := cfg.Server.Addr()
	log.Printf("web server listening on %s", addr)
	if err := app.Run(iris.Addr(addr)); err != nil {
		log.Fatalf("failed to run web server: %v", err)
	}
}
