// Command threadwatch follows a post's live thread feed and prints each
// snapshot. With -clients > 1 it doubles as a connection load test.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"pressroom/internal/notifications"

	"github.com/gorilla/websocket"
)

// Metrics tracks connection results across clients.
type Metrics struct {
	ConnectionsAttempted int64
	ConnectionsSuccess   int64
	ConnectionsFailed    int64
	MessagesReceived     int64
	Errors               int64
}

var metrics Metrics

func main() {
	host := flag.String("host", "localhost:8375", "API server host")
	postID := flag.Uint("post", 1, "Post ID to follow")
	token := flag.String("token", "", "Bearer token (required for draft posts)")
	clients := flag.Int("clients", 1, "Number of concurrent viewers")
	duration := flag.Duration("duration", 0, "Stop after this long; 0 runs until interrupted")
	flag.Parse()

	u := url.URL{Scheme: "ws", Host: *host, Path: fmt.Sprintf("/api/ws/posts/%d/thread", *postID)}
	header := http.Header{}
	if *token != "" {
		header.Set("Authorization", "Bearer "+*token)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go runClient(u.String(), header, i == 0, stop, &wg)
		if *clients > 1 {
			time.Sleep(20 * time.Millisecond)
		}
	}

	var timeout <-chan time.Time
	if *duration > 0 {
		timeout = time.After(*duration)
	}
	select {
	case <-timeout:
	case <-interrupt:
	}

	close(stop)
	wg.Wait()

	if *clients > 1 {
		printMetrics()
	}
}

func runClient(target string, header http.Header, verbose bool, stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	atomic.AddInt64(&metrics.ConnectionsAttempted, 1)

	c, resp, err := websocket.DefaultDialer.Dial(target, header)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		atomic.AddInt64(&metrics.ConnectionsFailed, 1)
		atomic.AddInt64(&metrics.Errors, 1)
		if verbose {
			log.Printf("dial failed: %v", err)
		}
		return
	}
	defer func() { _ = c.Close() }()
	atomic.AddInt64(&metrics.ConnectionsSuccess, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				if verbose && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					log.Printf("read: %v", err)
				}
				return
			}
			atomic.AddInt64(&metrics.MessagesReceived, 1)
			if verbose {
				printMessage(raw)
			}
		}
	}()

	select {
	case <-stop:
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	case <-done:
	}
}

func printMessage(raw []byte) {
	var msg notifications.ThreadMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("undecodable message: %s", raw)
		return
	}

	switch msg.Type {
	case notifications.MessageSnapshot:
		cause := "connect"
		if msg.Cause != nil {
			cause = string(msg.Cause.Type)
		}
		log.Printf("post %d: %d comments, %d viewers (%s)", msg.PostID, len(msg.Comments), msg.Viewers, cause)
		for _, c := range msg.Comments {
			fmt.Printf("  [%d] %s: %s\n", c.ID, c.Author.Name, c.Content)
			for _, r := range c.Replies {
				fmt.Printf("      [%d] %s: %s\n", r.ID, r.Author.Name, r.Content)
			}
		}
	case notifications.MessagePostDeleted:
		log.Printf("post %d was deleted", msg.PostID)
	case notifications.MessageError:
		log.Printf("server error: %s", msg.Error)
	default:
		log.Printf("unknown message type %q", msg.Type)
	}
}

func printMetrics() {
	log.Println("Results")
	log.Printf("Connections Attempted: %d", atomic.LoadInt64(&metrics.ConnectionsAttempted))
	log.Printf("Connections Successful: %d", atomic.LoadInt64(&metrics.ConnectionsSuccess))
	log.Printf("Connections Failed: %d", atomic.LoadInt64(&metrics.ConnectionsFailed))
	log.Printf("Messages Received: %d", atomic.LoadInt64(&metrics.MessagesReceived))
	log.Printf("Total Errors: %d", atomic.LoadInt64(&metrics.Errors))
}
