package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

type AnyEvent map[string]any

func main() {
	url := flag.String("url", "ws://127.0.0.1:8080/ws", "progress websocket URL")
	pretty := flag.Bool("pretty", true, "pretty print JSON events")
	flag.Parse()

	for {
		if err := run(*url, *pretty); err != nil {
			log.Printf("[watch] disconnected: %v", err)
		}
		time.Sleep(1 * time.Second) // auto reconnect
	}
}

func run(url string, pretty bool) error {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	log.Printf("[watch] connected to %s", url)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		if !pretty {
			fmt.Println(string(msg))
			continue
		}

		var obj AnyEvent
		if err := json.Unmarshal(msg, &obj); err != nil {
			// not JSON? print raw
			fmt.Println(string(msg))
			continue
		}

		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
}
