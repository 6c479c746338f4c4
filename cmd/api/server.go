package main

import (
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"divvy/internal/api/handlers/balances"
	"divvy/internal/api/handlers/chat"
	"divvy/internal/api/handlers/expenses"
	mw "divvy/internal/api/middlewares"
	"divvy/internal/api/routers"
	"divvy/internal/feed"
	"divvy/internal/repositories/sqlconnect"
	"divvy/internal/store/mysqlstore"
	"divvy/pkg/cron"
	"divvy/pkg/utils"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		return
	}

	utils.InitLogger()

	err = sqlconnect.ConnectDb()
	if err != nil {
		utils.Logger.Fatal("DB connection failed: ", err)
	}

	st := mysqlstore.New(sqlconnect.DB)

	var pub feed.Publisher = feed.NopPublisher{}
	var sub feed.Subscriber
	if amqpURL := os.Getenv("AMQP_URL"); amqpURL != "" {
		amqpFeed, err := feed.NewAMQPFeed(amqpURL)
		if err != nil {
			utils.Logger.Fatal("AMQP connection failed: ", err)
		}
		defer amqpFeed.Close()
		pub = amqpFeed
		sub = amqpFeed
	} else {
		utils.Logger.Warn("AMQP_URL not set, live chat stream disabled")
	}

	auditor := cron.NewAuditor(sqlconnect.DB, st, st, st)
	if err := auditor.Start(os.Getenv("AUDIT_CRON")); err != nil {
		utils.Logger.Fatal("failed to schedule balance audit: ", err)
	}
	defer auditor.Stop()

	expHandler := expenses.NewHandler(st, st, st)
	balHandler := balances.NewHandler(st, st, st)
	chatHandler := chat.NewHandler(pub, sub)

	port := os.Getenv("SERVER_PORT")

	cert := os.Getenv("CERT_FILE")
	key := os.Getenv("KEY_FILE")

	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	router := routers.MainRouter(expHandler, balHandler, chatHandler)
	jwtMiddleware := mw.MiddlewaresExcludePaths(mw.JWTMiddleware, "/users/signup", "/users/login")

	secureMux := jwtMiddleware(mw.SecurityHeaders(router))

	server := &http.Server{
		Addr:      port,
		Handler:   secureMux,
		TLSConfig: tlsConfig,
	}

	fmt.Println("Server is running on port", port)
	err = server.ListenAndServeTLS(cert, key)
	if err != nil {
		log.Fatalln("Error starting the server", err)
	}
}
