// Command client is a line-driven shopping client. It drives the same
// multiplexer and reconnection state machine a GUI would, with the terminal
// standing in for the presentation layer.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/tanyatrips135/Socket-Programming-Shopping-App/config"
	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/client"
	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/util"
)

func main() {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	stdin := bufio.NewScanner(os.Stdin)

	// The reconnect decision is surfaced on the main goroutine: only it
	// reads stdin. The state machine blocks in AwaitingUserDecision until
	// the answer comes back.
	askReconnect := make(chan struct{}, 1)
	decision := make(chan bool)

	shop := client.New(client.Options{
		Addr:           cfg.Client.ServerAddr,
		RequestTimeout: cfg.Client.RequestTimeout,
		BackoffBase:    cfg.Client.ReconnectBaseDelay,
		BackoffMax:     cfg.Client.ReconnectMaxDelay,
		Decide: func() bool {
			askReconnect <- struct{}{}
			return <-decision
		},
	})

	shop.States().Subscribe(func(s client.ConnState) {
		switch s {
		case client.StateConnected:
			fmt.Println("\n[connected — please log in]")
		case client.StateExited:
			fmt.Println("\n[session ended]")
		}
	})

	if err := shop.Connect(); err != nil {
		log.Fatalf("Failed to connect to %s: %v", cfg.Client.ServerAddr, err)
	}
	defer shop.Close()

	fmt.Println("Commands: register, login, products, add, remove, cart, clear, checkout, history, quit")

	for shop.State() != client.StateExited {
		drainEvents(shop)

		select {
		case <-askReconnect:
			fmt.Print("Connection lost. Reconnect? [y/N] ")
			answer := false
			if stdin.Scan() {
				answer = strings.HasPrefix(strings.ToLower(strings.TrimSpace(stdin.Text())), "y")
			}
			decision <- answer
			continue
		default:
		}

		fmt.Print("> ")
		if !stdin.Scan() {
			break
		}
		fields := strings.Fields(stdin.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "register":
			run(doCredentials(shop.Register, fields))
		case "login":
			run(doCredentials(shop.Login, fields))
		case "products":
			products, err := shop.Products()
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			for _, p := range products {
				fmt.Printf("%4d  %-24s %8s  stock %d\n", p.ID, p.Name, p.Price.StringFixed(2), p.Stock)
			}
		case "add":
			if len(fields) != 3 {
				fmt.Println("usage: add <product-id> <quantity>")
				continue
			}
			id, err1 := strconv.ParseInt(fields[1], 10, 64)
			qty, err2 := strconv.Atoi(fields[2])
			if err1 != nil || err2 != nil {
				fmt.Println("usage: add <product-id> <quantity>")
				continue
			}
			run(shop.AddToCart(id, qty))
		case "remove":
			if len(fields) != 2 {
				fmt.Println("usage: remove <product-id>")
				continue
			}
			id, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				fmt.Println("usage: remove <product-id>")
				continue
			}
			shop.RemoveFromCart(id)
		case "cart":
			for _, item := range shop.Cart() {
				fmt.Printf("%4d  %-24s x%-3d %8s\n", item.ProductID, item.Name, item.Quantity, item.Price.StringFixed(2))
			}
			fmt.Printf("Total: %s\n", shop.CartTotal().StringFixed(2))
		case "clear":
			shop.ClearCart()
		case "checkout":
			if err := shop.Checkout(); err != nil {
				fmt.Println("error:", err)
			} else {
				fmt.Println("Order placed.")
			}
		case "history":
			orders, err := shop.History()
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			for _, o := range orders {
				fmt.Printf("%4d  %-24s x%-3d %s\n", o.ID, o.ProductName, o.Quantity, o.OrderTime.Format("2006-01-02 15:04:05"))
			}
		case "quit":
			return
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}

func doCredentials(fn func(string, string) error, fields []string) error {
	if len(fields) != 3 {
		return fmt.Errorf("usage: %s <username> <password>", fields[0])
	}
	return fn(fields[1], fields[2])
}

func run(err error) {
	if err != nil {
		fmt.Println("error:", err)
	} else {
		fmt.Println("ok")
	}
}

// drainEvents applies any stock notifications that arrived since the last
// prompt. Event application happens here, on the foreground goroutine.
func drainEvents(shop *client.ShopClient) {
	for {
		select {
		case ev := <-shop.Events():
			fmt.Printf("[stock update] product %d now has %d in stock\n", ev.ProductID, ev.NewStock)
		default:
			return
		}
	}
}
