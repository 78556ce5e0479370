package workers

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"gorollupbridge/config"
	"gorollupbridge/workers/handlers"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"go.uber.org/zap"
)

// Router wires the API. Anything else is served from filesDir, falling back
// to index.html.
func Router(filesDir string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Options("/*", CORSHeaders)

	r.Get("/state", handlers.State)
	r.Get("/healthcheck", handlers.HealthCheck)

	r.Get("/transactions", handlers.Transactions)
	r.Delete("/transactions/pending", handlers.ClearPending)
	r.Get("/withdrawals", handlers.Withdrawals)

	r.Post("/deposit", handlers.Deposit)
	r.Post("/withdraw", handlers.Withdraw)
	r.Post("/approve", handlers.Approve)
	r.Post("/claim/{id}", handlers.Claim)

	r.Get("/balances", handlers.Balances)
	r.Get("/events", handlers.Events)

	// a bit of logic to prevent directory listing
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		filePath := filepath.Join(filesDir, filepath.Clean("/"+r.URL.Path))

		fileInfo, err := os.Stat(filePath)
		if err != nil || fileInfo.IsDir() {
			filePath = filepath.Join(filesDir, "index.html")
			fileInfo, err = os.Stat(filePath)
			if err != nil {
				http.NotFound(w, r)
				return
			}
		}

		file, err := os.Open(filePath)
		if err != nil {
			// this should not happen at this point
			http.Error(w, "unable to open", http.StatusInternalServerError)
			return
		}
		defer file.Close()

		http.ServeContent(w, r, file.Name(), fileInfo.ModTime(), file)
	})

	return r
}

// Worker_HTTP serves until ctx is cancelled, then shuts down gracefully.
func Worker_HTTP(ctx context.Context, cfg config.Configuration, log *zap.SugaredLogger) error {
	log.Infof("Starting HTTP service")

	workDir, _ := os.Getwd()
	handler := Router(filepath.Join(workDir, "app"))

	var server *http.Server

	if cfg.Server.UseSSL {
		cert, err := tls.LoadX509KeyPair("certchain.pem", "privatekey.pem")
		if err != nil {
			return err
		}
		server = &http.Server{
			Addr:    ":443",
			Handler: handler,
			TLSConfig: &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			},
		}
	} else {
		server = &http.Server{
			Addr:              cfg.Server.Listen,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	// request contexts end with ctx, so open event streams do not hold up Shutdown
	server.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.Server.UseSSL {
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()
	log.Infof("HTTP service started on %s", server.Addr)

	select {
	case err := <-errCh:
		if err != nil {
			log.Errorf("Error listening: %s", err.Error())
			return err
		}
	case <-ctx.Done():
	}
	log.Infof("HTTP service stopped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP service shutdown error: %+v", err)
		return err
	}
	log.Infof("HTTP service shutdown normal")
	return nil
}

func CORSHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
	w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Origin, X-Requested-With")
}
