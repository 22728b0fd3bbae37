package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type command struct {
	Command  string      `json:"command"`
	Username string      `json:"username,omitempty"`
	Code     string      `json:"code,omitempty"`
	Input    interface{} `json:"input,omitempty"`
}

func main() {
	addr := flag.String("addr", "localhost:8000", "server address")
	id := flag.String("id", "1", "numeric user id")
	name := flag.String("name", "player", "display name")
	code := flag.String("join", "", "lobby code to join; empty creates a new lobby")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws/" + *id}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			log.Printf("<- %s", message)
		}
	}()

	first := command{Command: "CREATE", Username: *name}
	if *code != "" {
		first = command{Command: "JOIN", Username: *name, Code: *code}
	}
	if err := c.WriteJSON(first); err != nil {
		log.Println("Write error:", err)
		return
	}

	log.Println("Type 'start' to start the game (host only); anything else is sent as an answer.")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case text := <-lines:
			if text == "" {
				continue
			}
			cmd := command{Command: "GAME_INPUT", Input: text}
			if text == "start" {
				cmd = command{Command: "START_GAME"}
			}
			if err := c.WriteJSON(cmd); err != nil {
				log.Println("Write error:", err)
				return
			}
			data, _ := json.Marshal(cmd)
			log.Printf("-> %s", data)
		}
	}
}
