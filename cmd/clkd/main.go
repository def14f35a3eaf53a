//go:build linux

// clkd runs the clock synthesizer service on a Linux host. It bootstraps
// the in-process message bus, binds an I2C transport, starts the clk and
// heartbeat services, and publishes the initial configuration from flags.
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"clkdev-go/bus"
	"clkdev-go/drivers/idt24x"
	"clkdev-go/platform"
	"clkdev-go/services/clk"
	"clkdev-go/services/heartbeat"
)

func main() {
	var (
		busName  = flag.String("i2c", "", "periph.io bus name (\"/dev/i2c-1\", \"1\", empty for first)")
		devfs    = flag.String("devfs", "", "raw /dev/i2c-* path, bypassing periph.io")
		addr     = flag.Uint("addr", idt24x.AddressDefault, "7-bit device address")
		xtalHz   = flag.Uint64("xtal", 0, "crystal frequency in Hz")
		refHz    = flag.Uint64("ref", 0, "input clock frequency in Hz")
		settings = flag.String("settings", "", "path to a raw register image to load at bring-up")
		q2Hz     = flag.Uint64("q2", 0, "initial Q2 rate in Hz (0 leaves the output alone)")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory := platform.NewFactory()
	if *devfs != "" {
		t, err := platform.OpenDevfs(*devfs)
		if err != nil {
			log.Fatalf("open %s: %v", *devfs, err)
		}
		defer t.Close()
		factory.Register("i2c0", t)
	} else {
		t, err := platform.OpenPeriph(*busName)
		if err != nil {
			log.Fatalf("open i2c bus %q: %v", *busName, err)
		}
		defer t.Close()
		factory.Register("i2c0", t)
	}

	cfg := clk.Config{
		Bus:    "i2c0",
		Addr:   uint16(*addr),
		XtalHz: *xtalHz,
		RefHz:  *refHz,
	}
	if *settings != "" {
		img, err := os.ReadFile(*settings)
		if err != nil {
			log.Fatalf("read settings image: %v", err)
		}
		cfg.Settings = base64.StdEncoding.EncodeToString(img)
	}

	b := bus.NewBus(64)
	clkConn := b.NewConnection("clk")
	mainConn := b.NewConnection("main")
	defer mainConn.Disconnect()

	// Log everything the clk service publishes.
	mon := mainConn.Subscribe(bus.T("clk", "#"))
	go func() {
		for m := range mon.Channel() {
			log.Printf("%v: %v", m.Topic, m.Payload)
		}
	}()

	hb := &heartbeat.Service{}
	if err := hb.Start(ctx, b.NewConnection("heartbeat")); err != nil {
		log.Fatalf("heartbeat: %v", err)
	}
	go clk.Run(ctx, clkConn, factory)

	mainConn.Publish(mainConn.NewMessage(bus.T("config", "clk"), cfg, true))

	if *q2Hz != 0 {
		setRate := bus.T("clk", "output", 2, "control", "set_rate")
		reply, err := mainConn.RequestWait(ctx, mainConn.NewMessage(setRate,
			map[string]any{"rate_hz": *q2Hz}, false))
		if err != nil {
			log.Printf("set_rate: %v", err)
		} else {
			log.Printf("set_rate reply: %v", reply.Payload)
		}
	}

	<-ctx.Done()
	log.Println("shutting down")
}
