package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/aescarias/apricot/client"
	"github.com/aescarias/apricot/internal/netutil"
	"github.com/aescarias/apricot/metainfo"
	"github.com/aescarias/apricot/wireid"
)

const clientTag = "PI"

var version = [2]byte{'0', '1'}

func main() {
	defer glog.Flush()

	port := flag.Uint("p", 6881, "port to listen for incoming peer connections on")
	flag.UintVar(port, "port", 6881, "same as -p")
	bind := flag.String("b", "0.0.0.0", "address to bind the peer listener to")
	flag.StringVar(bind, "bind", "0.0.0.0", "same as -b")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [-p port] [-b bind] <file.torrent>\n", os.Args[0])
		os.Exit(1)
	}

	filename := flag.Arg(0)

	data, err := os.ReadFile(filename)
	if err != nil {
		glog.Exitf("could not read %q: %v", filename, err)
	}

	m, err := metainfo.Load(data)
	if err != nil {
		glog.Exitf("could not parse %q: %v", filename, err)
	}

	peerId, err := wireid.NewPeerId(clientTag, version)
	if err != nil {
		glog.Exitf("could not generate peer id: %v", err)
	}

	glog.Infof("loaded %q (%s, info hash %s)", m.Info.Name, netutil.HumanBytes(m.Info.TotalLength()), m.InfoHash())

	coord := client.NewCoordinator(peerId, nil)
	coord.AddTorrent(m)
	go coord.Run()

	ln, err := net.Listen("tcp", net.JoinHostPort(*bind, fmt.Sprint(*port)))
	if err != nil {
		glog.Exitf("could not listen on %s:%d: %v", *bind, *port, err)
	}
	go func() {
		if err := coord.Listen(ln); err != nil {
			glog.Errorf("peer listener stopped: %v", err)
		}
	}()

	trackerClient := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Announce(trackerClient, m.AnnounceURL, client.AnnounceRequest{
		InfoHash:   m.InfoHash(),
		PeerId:     peerId,
		Port:       uint16(*port),
		Uploaded:   0,
		Downloaded: 0,
		Left:       m.Info.TotalLength(),
		Event:      client.EventStarted,
		Compact:    true,
	})
	if err != nil {
		glog.Exitf("could not announce to %q: %v", m.AnnounceURL, err)
	}

	glog.Infof("tracker reports %d complete, %d incomplete, %d peers (reannounce in %ds)",
		resp.Complete, resp.Incomplete, len(resp.Peers), resp.Interval)

	for _, peer := range resp.Peers {
		addr := net.JoinHostPort(peer.Ip.String(), fmt.Sprint(peer.Port))
		if err := coord.Dial("tcp", addr, m.InfoHash()); err != nil {
			glog.Infof("could not dial %s: %v", addr, err)
		}
	}

	interval := resp.Interval
	if interval <= 0 {
		interval = 600
	}
	<-time.After(time.Duration(interval) * time.Second)
}
