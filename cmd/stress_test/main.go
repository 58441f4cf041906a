package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/vending-machine/internal/adapter/storage"
	"github.com/rl1809/vending-machine/internal/core/domain"
	"github.com/rl1809/vending-machine/internal/core/service"
	"github.com/rl1809/vending-machine/internal/dispatch"
	"github.com/rl1809/vending-machine/internal/port"
)

const owner = "owner"

func main() {
	os.Exit(run())
}

func run() int {
	redisAddr := flag.String("redis", "", "run against Redis at this address instead of memory")
	initialStock := flag.Uint64("stock", 20, "chocolate bars loaded before the run")
	totalRequests := flag.Int("requests", 50, "concurrent get_item commands")
	flag.Parse()

	logger := zap.NewExample()
	defer func() { _ = logger.Sync() }()
	ctx := context.Background()

	if *totalRequests < 0 {
		logger.Error("requests must not be negative", zap.Int("requests", *totalRequests))
		return 2
	}

	var store port.StateStore = storage.NewMemoryAdapter()
	if *redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect redis", zap.Error(err))
			return 1
		}
		// A fresh prefix per run keeps earlier runs out of the way.
		store = storage.NewRedisAdapter(rdb, "vending:stress:"+uuid.NewString()+":")
	}

	machine := service.NewMachine(store, domain.AccessModeOwner, service.WithEventQueue(*totalRequests+1))
	defer machine.Close()
	go func() {
		for range machine.Events() {
		}
	}()

	dispatcher := dispatch.New(machine)
	err := dispatcher.InstantiateMsg(ctx, owner, dispatch.InstantiateMsg{
		Counts: map[string]uint64{domain.ChocolateBar.Key(): *initialStock},
	})
	if err != nil {
		logger.Error("failed to instantiate machine", zap.Error(err))
		return 1
	}

	var successCount, soldOutCount, otherCount atomic.Uint64
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *totalRequests; i++ {
		wg.Add(1)
		go func(user int) {
			defer wg.Done()

			_, err := dispatcher.ExecuteMsg(ctx, domain.Principal(fmt.Sprintf("user-%d", user)), dispatch.ExecuteMsg{
				GetItem: &dispatch.GetItemPayload{Category: "chocolates"},
			})
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				soldOutCount.Add(1)
			default:
				otherCount.Add(1)
				logger.Error("unexpected error", zap.Int("user", user), zap.Error(err))
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	counts, err := machine.ItemsCount(ctx)
	if err != nil {
		logger.Error("failed to read items count", zap.Error(err))
		return 1
	}

	requests := uint64(*totalRequests)
	want := expectedRun(*initialStock, requests)
	got := runResult{
		dispensed:  successCount.Load(),
		soldOut:    soldOutCount.Load(),
		finalStock: counts[domain.ChocolateBar.Key()],
	}

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", *initialStock)
	fmt.Printf("Total Requests:   %d\n", requests)
	fmt.Printf("Dispensed:        %d\n", got.dispensed)
	fmt.Printf("Sold Out:         %d\n", got.soldOut)
	fmt.Printf("Other Errors:     %d\n", otherCount.Load())
	fmt.Printf("Final Stock:      %d\n", got.finalStock)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if got != want || otherCount.Load() != 0 {
		fmt.Printf("FAIL: expected %d dispensed/%d sold out/%d left, got %d/%d/%d\n",
			want.dispensed, want.soldOut, want.finalStock, got.dispensed, got.soldOut, got.finalStock)
		return 1
	}
	fmt.Println("PASS")
	return 0
}

type runResult struct {
	dispensed  uint64
	soldOut    uint64
	finalStock uint64
}

// expectedRun is the only outcome a run may have: every request is served
// until stock runs out and the rest are refused.
func expectedRun(stock, requests uint64) runResult {
	dispensed := min(stock, requests)
	return runResult{
		dispensed:  dispensed,
		soldOut:    requests - dispensed,
		finalStock: stock - dispensed,
	}
}
