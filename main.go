package main

import (
	"context"
	"os"

	"SaChat/global"
	"SaChat/logger"
	chatapi "SaChat/module/chat"
	chatstore "SaChat/module/chat/store"
	"SaChat/module/user"
	chatsvc "SaChat/service/chat"
	"SaChat/service/chat/handlers"
	ka "SaChat/service/kafka"
	"SaChat/service/notify"
	"SaChat/service/storage/pg"

	"github.com/gin-gonic/gin"
)

func main() {
	defer logger.Sync()

	ctx := context.Background()
	if err := global.ConfigAll(ctx); err != nil {
		logger.Errorf("[main] bootstrap failed: %v", err)
		os.Exit(1)
	}
	defer pg.Close()

	pool := pg.GetPool()
	dir := user.NewPgDirectory(pool)
	msgStore := chatstore.NewPgMessageStore(pool)
	contactStore := chatstore.NewPgContactStore(pool)

	var notifier notify.Dispatcher = notify.Nop{}
	if ka.Ready() {
		notifier = notify.NewKafka(ka.Cfg.NotifyTopic)
	}

	presence := chatsvc.NewPresenceRegistry(dir, global.GatewayID(), chatsvc.RegistryConf{})
	delivery := chatsvc.NewDelivery(msgStore, dir, presence, notifier)
	server := chatsvc.NewServer(global.GatewayID(), presence, delivery, dir, notifier)
	defer server.Close()
	handlers.RegisterAll(server)

	api := chatapi.NewAPI(delivery, presence, contactStore, dir)

	r := gin.Default()
	chatapi.RegisterRoutes(r, api, server.HandleWS, global.GetJwtSecret())

	addr := os.Getenv("SACHAT_LISTEN")
	if addr == "" {
		addr = ":8080"
	}
	logger.Infof("[main] sachat gateway %s listening on %s", global.GatewayID(), addr)
	if err := r.Run(addr); err != nil {
		logger.Errorf("[main] server exited: %v", err)
		os.Exit(1)
	}
}
