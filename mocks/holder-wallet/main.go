package main

import (
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"vcanchor/contracts/holder"
)

const (
	defaultNATSURL         = nats.DefaultURL
	defaultRequestSubject  = "vcanchor.verification.request"
	defaultResponseSubject = "vcanchor.verification.response"
	defaultLatencyMs       = "300"
)

var (
	responseSubject = getEnv("RESPONSE_SUBJECT", defaultResponseSubject)
	credentialID    = os.Getenv("CREDENTIAL_ID")
	latencyMs       = getEnvInt("LATENCY_MS", defaultLatencyMs)
)

// The wallet answers every consent request after a simulated think time.
// Magic purposes let e2e runs steer it:
//
//	purpose contains "decline" -> the holder declines
//	purpose contains "ignore"  -> no answer, the verifier times out
func main() {
	url := getEnv("NATS_URL", defaultNATSURL)
	requestSubject := getEnv("REQUEST_SUBJECT", defaultRequestSubject)

	nc, err := nats.Connect(url, nats.Name("mock-holder-wallet"))
	if err != nil {
		log.Fatal(err)
	}
	defer nc.Drain() //nolint:errcheck

	if _, err := nc.Subscribe(requestSubject, handleRequest(nc)); err != nil {
		log.Fatal(err)
	}

	log.Printf("👛 Mock holder wallet listening on %s (%s)", requestSubject, url)
	log.Printf("⏱️  Simulated think time: %dms", latencyMs)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}

func handleRequest(nc *nats.Conn) nats.MsgHandler {
	return func(msg *nats.Msg) {
		var req holder.Request
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			log.Printf("malformed request: %v", err)
			return
		}
		if req.Version != holder.ContractVersion {
			log.Printf("unsupported contract %q for %s", req.Version, req.SessionID)
			return
		}
		purpose := strings.ToLower(req.Verifier.Purpose)
		if strings.Contains(purpose, "ignore") {
			log.Printf("ignoring %s from %s", req.SessionID, req.Verifier.Org)
			return
		}

		resp := holder.Response{
			SessionID:    req.SessionID,
			CredentialID: req.CredentialID,
			Approve:      !strings.Contains(purpose, "decline"),
		}
		if resp.CredentialID == "" {
			resp.CredentialID = credentialID
		}

		go func() {
			time.Sleep(time.Duration(latencyMs) * time.Millisecond)
			data, _ := json.Marshal(resp)
			out := nats.NewMsg(responseSubject)
			out.Data = data
			if rid := msg.Header.Get("X-Request-ID"); rid != "" {
				out.Header.Set("X-Request-ID", rid)
			}
			ack, err := nc.RequestMsg(out, 5*time.Second)
			if err != nil {
				log.Printf("answer for %s not acknowledged: %v", req.SessionID, err)
				return
			}
			var a holder.Ack
			if err := json.Unmarshal(ack.Data, &a); err != nil || a.Error != "" {
				log.Printf("answer for %s rejected: %s", req.SessionID, ack.Data)
				return
			}
			log.Printf("answered %s approve=%t: session %s", req.SessionID, resp.Approve, a.State)
		}()
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key, fallback string) int {
	n, err := strconv.Atoi(getEnv(key, fallback))
	if err != nil {
		log.Fatalf("%s must be an integer: %v", key, err)
	}
	return n
}
