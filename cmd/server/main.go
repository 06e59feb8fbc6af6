package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"chess/auth"
	"chess/env"
	"chess/game_server"
	"chess/matchmaking_server"
)

func main() {
	log.SetFlags(0)

	err := run()
	if err != nil {
		log.Fatal(err)
	}
}

type MiddlewareServer struct {
	ServeMux *http.ServeMux
}

const CorsHeader = "Access-Control-Allow-Origin"
const AllowAll = "*"

func (server *MiddlewareServer) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	writer.Header().Add(CorsHeader, AllowAll)
	server.ServeMux.ServeHTTP(writer, req)
}

// run wires the servers together and starts an http.Server for the
// configured address.
func run() error {
	appEnv, err := env.GetEnv()
	if err != nil {
		return err
	}
	if appEnv.AppEnv == env.Prod {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	store, err := auth.OpenStore(appEnv.DbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	authServer := auth.NewAuthServer(appEnv, store)
	gameServer := game_server.NewGameServer(authServer)
	matchmakingServer := matchmaking_server.NewMatchmakingServer(authServer, gameServer)

	mux := http.NewServeMux()
	mux.Handle("/auth/", http.StripPrefix("/auth", authServer))
	mux.Handle("/game/", http.StripPrefix("/game", gameServer))
	mux.Handle("/matchmaking/", http.StripPrefix("/matchmaking", matchmakingServer))

	middlewareServer := MiddlewareServer{ServeMux: mux}

	httpServer := &http.Server{
		Handler:      &middlewareServer,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		Addr:         appEnv.Addr,
	}

	httpServer.RegisterOnShutdown(gameServer.OnShutdown)

	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on http://%v", appEnv.Addr)
		errc <- httpServer.ListenAndServe()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	select {
	case err := <-errc:
		log.Printf("failed to serve: %v", err)
	case sig := <-sigs:
		log.Printf("terminating: %v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
