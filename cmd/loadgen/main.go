package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/crossline/crossline-exchange/matching"
)

type input struct {
	ticker string
	side   matching.OrderSide
	volume int64
	price  float64
}

func main() {
	var tickerCount, ordersCount, workers int
	var norm, heavy bool
	flag.IntVar(&tickerCount, "s", 3, "Tickers count")
	flag.IntVar(&ordersCount, "i", 5_000_000, "Input orders count")
	flag.IntVar(&workers, "w", 4, "Submitting goroutines")
	flag.BoolVar(&norm, "n", false, "Use normal distribution for price and volume")
	flag.BoolVar(&heavy, "heavy", false, "Generate heavy sides for the order books")
	flag.Parse()

	tickers := make([]string, tickerCount)
	for i := range tickers {
		tickers[i] = "SYM" + strconv.Itoa(i+1)
	}

	recorder := &Recorder{}
	exchange, err := matching.NewExchange(tickers, matching.WithHandler(recorder))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("prepare input")
	inputs := generateInput(ordersCount, norm, heavy, tickers)

	fmt.Println("start execution")
	start := time.Now()

	var wg sync.WaitGroup
	perWorker := len(inputs) / workers
	for w := 0; w < workers; w++ {
		lo := w * perWorker
		hi := lo + perWorker
		if w == workers-1 {
			hi = len(inputs)
		}
		wg.Add(1)
		go func(batch []input) {
			defer wg.Done()
			for _, in := range batch {
				if _, err := exchange.HandleOrder("loadgen", in.ticker, in.side, in.volume, in.price); err != nil {
					log.Fatal(err)
				}
			}
		}(inputs[lo:hi])
	}
	wg.Wait()
	elapsed := time.Since(start)

	recorder.PrintStatistics()

	rps := float64(ordersCount) * float64(time.Second) / float64(elapsed)
	fmt.Printf("RPS: %.5f\n", rps)
}

func randomFloat(down, up float64, prec int, norm bool) float64 {
	var raw float64
	switch norm {
	case false:
		raw = rand.Float64()*(up-down) + down
	case true:
		std := (up - down) / (2.0 * 5) // range = [-5*std; +5*std]
		mean := (up + down) / 2.0
		raw = rand.NormFloat64()*std + mean
		// cut edges
		if raw < down {
			raw = down
		}
		if raw > up {
			raw = up
		}
	}
	pow := math.Pow10(prec)
	return math.Round(raw*pow) / pow
}

func randomChoice[T any](list []T) T {
	var empty T
	if len(list) == 0 {
		return empty
	}

	return list[rand.IntN(len(list))]
}

func generateInput(ordersCount int, norm, heavy bool, tickers []string) []input {
	sides := []matching.OrderSide{matching.OrderSideBuy, matching.OrderSideSell}
	inputs := make([]input, 0, ordersCount)
	for i := 0; i < ordersCount; i++ {
		var price float64
		var side matching.OrderSide
		switch heavy {
		case false:
			price = randomFloat(1, 100, 2, norm)
			side = randomChoice(sides)
		case true:
			// First half skews bids low and asks high, building deep
			// books; second half crosses them.
			if i < ordersCount/2 {
				side = randomChoice(sides)
				switch side {
				case matching.OrderSideBuy:
					price = randomFloat(1, 50, 2, norm)
				case matching.OrderSideSell:
					price = randomFloat(51, 100, 2, norm)
				}
			} else {
				price = randomFloat(1, 100, 2, norm)
				side = randomChoice(sides)
			}
		}
		inputs = append(inputs, input{
			ticker: randomChoice(tickers),
			side:   side,
			volume: int64(rand.IntN(100) + 1),
			price:  price,
		})
	}
	return inputs
}
