// Command mqctl creates, inspects and drives interprocess message queues.
//
// Usage:
//
//	mqctl create [-capacity 16] [-blocksize 64] [-hold] <queue>
//	mqctl stat <queue>
//	mqctl send [-stdin] <queue> [message]
//	mqctl recv [-try] <queue>
//	mqctl drain <queue>
//	mqctl stop <queue>
//	mqctl reset <queue>
//	mqctl clear <queue>
//	mqctl rm <queue>
//	mqctl bench [-producers 4] [-messages 100000] [-size 128]
//
// A queue made by plain create outlives the command: mqctl exits without
// detaching, so the reference-counted auto-removal never fires and the
// queue stays available to other processes until "mqctl rm". With -hold the
// command instead keeps its handle and detaches on interrupt, which removes
// the queue once the last user is gone.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sugawarayuuta/sonnet"
	"golang.org/x/sync/errgroup"

	"github.com/val-verde/boost-log/ipc"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("mqctl: ")

	if len(os.Args) < 2 {
		usage()
	}
	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "create":
		cmdCreate(args)
	case "stat":
		cmdStat(args)
	case "send":
		cmdSend(args)
	case "recv":
		cmdRecv(args)
	case "drain":
		cmdDrain(args)
	case "stop":
		cmdStop(args)
	case "reset":
		cmdReset(args)
	case "clear":
		cmdClear(args)
	case "rm":
		cmdRm(args)
	case "bench":
		cmdBench(args)
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: mqctl <command> [flags] <queue>

Commands:
  create   create a queue (-capacity, -blocksize, -hold)
  stat     print a JSON snapshot of the queue header
  send     enqueue one message (literal argument, or -stdin)
  recv     dequeue one message to stdout (-try to not wait)
  drain    empty the queue and print a JSON summary
  stop     interrupt blocked senders and receivers everywhere
  reset    re-arm blocking operations after a stop
  clear    discard all queued messages
  rm       remove the queue's backing segment
  bench    run a local producer/consumer throughput benchmark
`)
	os.Exit(2)
}

func cmdCreate(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	capacity := fs.Uint("capacity", 16, "arena capacity in blocks")
	blockSize := fs.Uint("blocksize", 64, "block size in bytes (power of two, at least 8)")
	hold := fs.Bool("hold", false, "keep the handle and detach on interrupt")
	fs.Parse(args)

	name := fs.Arg(0)
	if name == "" {
		log.Fatal("create: missing queue name")
	}

	capb, bs, err := queueGeometry(uint64(*capacity), uint64(*blockSize))
	if err != nil {
		log.Fatalf("create: %v", err)
	}
	q, err := ipc.Create(name, capb, bs, ipc.BlockOnOverflow)
	if err != nil {
		log.Fatalf("failed to create queue %s: %v", name, err)
	}
	fmt.Printf("created queue %s: %d blocks of %d bytes, max message %d bytes\n",
		name, q.Capacity(), q.BlockSize(), q.MaxMessageSize())

	if !*hold {
		// Exit without Close so the queue survives this process.
		return
	}

	fmt.Println("holding queue open; interrupt to detach")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	if err := q.Close(); err != nil {
		log.Fatalf("failed to detach from queue %s: %v", name, err)
	}
}

func cmdStat(args []string) {
	q := mustOpen("stat", args)
	defer q.Close()

	s, err := q.Stat()
	if err != nil {
		log.Fatalf("failed to stat queue %s: %v", q.Name(), err)
	}
	printJSON(s)
}

func cmdSend(args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	fromStdin := fs.Bool("stdin", false, "read the message from standard input")
	fs.Parse(args)

	q := mustOpenParsed("send", fs)
	defer q.Close()

	var payload []byte
	if *fromStdin {
		var err error
		payload, err = io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatalf("failed to read message from stdin: %v", err)
		}
	} else {
		if fs.NArg() < 2 {
			log.Fatal("send: missing message argument (or use -stdin)")
		}
		payload = []byte(fs.Arg(1))
	}

	res, err := q.Send(payload)
	if err != nil {
		log.Fatalf("failed to send to queue %s: %v", q.Name(), err)
	}
	if res == ipc.Aborted {
		log.Fatalf("send to queue %s aborted: queue is stopped", q.Name())
	}
}

func cmdRecv(args []string) {
	fs := flag.NewFlagSet("recv", flag.ExitOnError)
	try := fs.Bool("try", false, "fail instead of waiting when the queue is empty")
	fs.Parse(args)

	q := mustOpenParsed("recv", fs)
	defer q.Close()

	var msg []byte
	if *try {
		ok, out, err := q.TryReceiveAppend(nil)
		if err != nil {
			log.Fatalf("failed to receive from queue %s: %v", q.Name(), err)
		}
		if !ok {
			log.Fatalf("queue %s is empty", q.Name())
		}
		msg = out
	} else {
		res, out, err := q.ReceiveAppend(nil)
		if err != nil {
			log.Fatalf("failed to receive from queue %s: %v", q.Name(), err)
		}
		if res == ipc.Aborted {
			log.Fatalf("receive from queue %s aborted: queue is stopped", q.Name())
		}
		msg = out
	}

	os.Stdout.Write(msg)
	fmt.Println()
}

func cmdDrain(args []string) {
	q := mustOpen("drain", args)
	defer q.Close()

	var messages, bytes int
	for {
		ok, out, err := q.TryReceiveAppend(nil)
		if err != nil {
			log.Fatalf("failed to drain queue %s: %v", q.Name(), err)
		}
		if !ok {
			break
		}
		messages++
		bytes += len(out)
	}

	printJSON(struct {
		Messages int `json:"messages"`
		Bytes    int `json:"bytes"`
	}{messages, bytes})
}

func cmdStop(args []string) {
	q := mustOpen("stop", args)
	defer q.Close()
	q.Stop()
}

func cmdReset(args []string) {
	q := mustOpen("reset", args)
	defer q.Close()
	q.Reset()
}

func cmdClear(args []string) {
	q := mustOpen("clear", args)
	defer q.Close()
	if err := q.Clear(); err != nil {
		log.Fatalf("failed to clear queue %s: %v", q.Name(), err)
	}
}

func cmdRm(args []string) {
	if len(args) < 1 || args[0] == "" {
		log.Fatal("rm: missing queue name")
	}
	if err := ipc.Remove(args[0]); err != nil {
		log.Fatalf("failed to remove queue %s: %v", args[0], err)
	}
}

func cmdBench(args []string) {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	producers := fs.Int("producers", 4, "concurrent producers")
	messages := fs.Int("messages", 100000, "messages per producer")
	size := fs.Int("size", 128, "payload bytes per message")
	capacity := fs.Uint("capacity", 1024, "arena capacity in blocks")
	blockSize := fs.Uint("blocksize", 256, "block size in bytes")
	fs.Parse(args)

	capb, bs, err := queueGeometry(uint64(*capacity), uint64(*blockSize))
	if err != nil {
		log.Fatalf("bench: %v", err)
	}
	payload, err := benchPayload(*size)
	if err != nil {
		log.Fatalf("bench: %v", err)
	}

	name := fmt.Sprintf("mqctl-bench-%d", os.Getpid())
	q, err := ipc.Create(name, capb, bs, ipc.BlockOnOverflow)
	if err != nil {
		log.Fatalf("failed to create bench queue: %v", err)
	}
	defer q.Close()
	if *size > int(q.MaxMessageSize()) {
		log.Fatalf("payload size %d exceeds the queue's %d byte limit", *size, q.MaxMessageSize())
	}

	total := *producers * *messages

	start := time.Now()
	var g errgroup.Group
	for p := 0; p < *producers; p++ {
		g.Go(func() error {
			for i := 0; i < *messages; i++ {
				res, err := q.Send(payload)
				if err != nil {
					return err
				}
				if res != ipc.Succeeded {
					return fmt.Errorf("send aborted after %d messages", i)
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		buf := make([]byte, q.MaxMessageSize())
		for i := 0; i < total; i++ {
			res, _, err := q.Receive(buf)
			if err != nil {
				return err
			}
			if res != ipc.Succeeded {
				return fmt.Errorf("receive aborted after %d messages", i)
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Fatalf("bench failed: %v", err)
	}
	elapsed := time.Since(start)

	secs := elapsed.Seconds()
	printJSON(struct {
		Producers  int     `json:"producers"`
		Messages   int     `json:"messages"`
		Bytes      int     `json:"bytes"`
		Seconds    float64 `json:"seconds"`
		MsgsPerSec float64 `json:"msgs_per_sec"`
		MBPerSec   float64 `json:"mb_per_sec"`
	}{
		Producers:  *producers,
		Messages:   total,
		Bytes:      total * *size,
		Seconds:    secs,
		MsgsPerSec: float64(total) / secs,
		MBPerSec:   float64(total*(*size)) / secs / 1e6,
	})
}

// queueGeometry narrows the geometry flags to the header's uint32 fields,
// rejecting values a bare cast would silently truncate.
func queueGeometry(capacity, blockSize uint64) (uint32, uint32, error) {
	if capacity > math.MaxUint32 {
		return 0, 0, fmt.Errorf("capacity %d is out of range", capacity)
	}
	if blockSize > math.MaxUint32 {
		return 0, 0, fmt.Errorf("block size %d is out of range", blockSize)
	}
	return uint32(capacity), uint32(blockSize), nil
}

// benchPayload builds the benchmark payload, rejecting negative sizes
// before they reach make.
func benchPayload(size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("payload size %d is negative", size)
	}
	p := make([]byte, size)
	for i := range p {
		p[i] = byte(i)
	}
	return p, nil
}

// mustOpen parses no flags: the queue name is the only argument.
func mustOpen(cmd string, args []string) *ipc.MessageQueue {
	if len(args) < 1 || args[0] == "" {
		log.Fatalf("%s: missing queue name", cmd)
	}
	return open(args[0])
}

// mustOpenParsed fetches the queue name from an already-parsed flag set.
func mustOpenParsed(cmd string, fs *flag.FlagSet) *ipc.MessageQueue {
	if fs.Arg(0) == "" {
		log.Fatalf("%s: missing queue name", cmd)
	}
	return open(fs.Arg(0))
}

func open(name string) *ipc.MessageQueue {
	q, err := ipc.Open(name, ipc.BlockOnOverflow)
	if err != nil {
		log.Fatalf("failed to open queue %s: %v", name, err)
	}
	return q
}

func printJSON(v any) {
	out, err := sonnet.Marshal(v)
	if err != nil {
		log.Fatalf("failed to encode JSON: %v", err)
	}
	fmt.Println(string(out))
}
