package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/aescarias/apricot/internal/trackerstats"
	"github.com/aescarias/apricot/tracker"
)

func main() {
	defer glog.Flush()

	port := flag.Uint("p", 8080, "port to listen on")
	flag.UintVar(port, "port", 8080, "same as -p")
	bind := flag.String("b", "0.0.0.0", "address to bind")
	flag.StringVar(bind, "bind", "0.0.0.0", "same as -b")
	interval := flag.Uint("i", 600, "interval to instruct clients to announce with, in seconds")
	flag.UintVar(interval, "interval", 600, "same as -i")
	minInterval := flag.Uint("min-interval", 0, "if nonzero, the minimum interval to permit clients to announce")
	timeoutInterval := flag.Uint("timeout-interval", 900, "interval after which to consider a peer dropped, in seconds")
	maxResponsePeers := flag.Uint("max-response-peers", 30, "maximum number of peers to return per announce")
	flag.Parse()

	addr := net.JoinHostPort(*bind, fmt.Sprint(*port))

	cfg := tracker.Config{
		Interval:         time.Duration(*interval) * time.Second,
		MinInterval:      time.Duration(*minInterval) * time.Second,
		TimeoutInterval:  time.Duration(*timeoutInterval) * time.Second,
		MaxResponsePeers: int(*maxResponsePeers),
	}

	reg := tracker.NewRegistry()
	stats := trackerstats.New(64)
	defer stats.Close()

	srv := tracker.NewServer(addr, reg, cfg, stats)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		glog.Infof("shutting down")
		srv.Stop()
	}()

	if err := srv.Serve(); err != nil {
		glog.Exitf("tracker server failed: %v", err)
	}
}
