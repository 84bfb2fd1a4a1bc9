package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/voodooEntity/pathspace/src/system/archivist"
	"github.com/voodooEntity/pathspace/src/system/capability"
	"github.com/voodooEntity/pathspace/src/system/core"
	"github.com/voodooEntity/pathspace/src/system/pathspace"
	"github.com/voodooEntity/pathspace/src/system/spacebuilder"
)

func main() {
	logger := log.New(os.Stdout, "", 0)

	// assemble a space with two workers, read/write everywhere and
	// a background sweep for expiring entries
	space, err := spacebuilder.NewSpace().
		SetWorkers(2).
		SetLogLevel(archivist.LEVEL_INFO).
		SetPrinter(logger).
		SetSweepInterval(time.Second).
		AddCapability("/**", capability.All).
		AddValue("/sensors/temp", 21.5).
		AddValue("/sensors/humidity", 0.48).
		Build()
	if err != nil {
		logger.Println("build failed:", err)
		os.Exit(1)
	}
	defer space.Shutdown()

	// watch everything under /sensors
	subID, _ := space.Subscribe("/sensors/**", func(path string) {
		logger.Println("data arrived at", path)
	})
	defer space.Unsubscribe(subID)

	// values queue up per path, reads peek and takes pop
	space.Insert("/sensors/temp", 22.1)
	temp, _ := pathspace.Read[float64](space, "/sensors/temp")
	fmt.Println("front temp reading:", temp)

	taken, _ := pathspace.Take[float64](space, "/sensors/temp")
	next, _ := pathspace.Take[float64](space, "/sensors/temp")
	fmt.Println("drained queue:", taken, next)

	// a lazy stored function runs when first consumed
	space.Insert("/jobs/answer", func() int { return 6 * 7 },
		pathspace.WithExecution(core.ExecutionOptions{Category: core.ExecutionLazy}))
	answer, _ := pathspace.Read[int](space, "/jobs/answer", pathspace.BlockFor(time.Second))
	fmt.Println("computed answer:", answer)

	// a blocked take wakes as soon as a producer delivers
	go func() {
		time.Sleep(50 * time.Millisecond)
		space.Insert("/queue/work", "payload")
	}()
	work, err := pathspace.Take[string](space, "/queue/work", pathspace.BlockFor(time.Second))
	fmt.Println("received:", work, err)

	children, _ := space.ListChildren("/sensors")
	fmt.Println("sensor paths:", children)
}
