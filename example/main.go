package main

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nurul-GC/notify2"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if err := runMain(logger); err != nil {
		logger.Error().Err(err).Msg("example failed")
		os.Exit(1)
	}
}

func runMain(logger zerolog.Logger) error {
	// All callbacks run on this goroutine, inside loop.Run.
	loop := notify2.NewManualLoop()
	if err := notify2.Init("Test GO App", notify2.WithLoop(loop), notify2.WithLogger(logger)); err != nil {
		return err
	}
	defer notify2.Uninit()

	DebugServerFeatures(logger)

	n := notify2.New("Test", "This is a test of the DBus bindings for go with sound.", "mail-unread")
	n.SetSoundName("trash-empty")
	if err := n.SetUrgency(notify2.UrgencyCritical); err != nil {
		return err
	}
	if err := n.SetTimeoutDuration(5 * time.Second); err != nil {
		return err
	}

	if absFilePath, err := filepath.Abs("./small.png"); err == nil {
		n.SetImagePath("file://" + absFilePath)
	}
	// image-data takes precedence over image-path:
	if rgba, err := readImage("./big.jpg"); err == nil {
		n.SetImageData(rgba)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n.AddAction("cancel", "Cancel", func(n *notify2.Notification, action string) {
		logger.Info().Uint32("id", n.ID()).Str("action", action).Msg("action invoked")
	})
	n.AddActionWithData("open", "Open", func(n *notify2.Notification, action string, data interface{}) {
		logger.Info().Uint32("id", n.ID()).Str("action", action).Interface("data", data).Msg("action invoked")
	}, "inbox")
	if err := n.Connect(notify2.EventClosed, func(n *notify2.Notification) {
		logger.Info().Uint32("id", n.ID()).Stringer("reason", n.CloseReason()).Msg("notification closed")
		cancel()
	}); err != nil {
		return err
	}

	if err := n.Show(); err != nil {
		return err
	}
	logger.Info().Uint32("id", n.ID()).Msg("sent notification")

	if err := loop.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func DebugServerFeatures(logger zerolog.Logger) {
	// List server features!
	caps, err := notify2.ServerCaps()
	if err != nil {
		logger.Warn().Err(err).Msg("error fetching capabilities")
	}
	for x := range caps {
		fmt.Printf("Registered capability: %v\n", caps[x])
	}

	info, err := notify2.ServerInfo()
	if err != nil {
		logger.Warn().Err(err).Msg("error getting server information")
	}
	fmt.Printf("Name:    %v\n", info.Name)
	fmt.Printf("Vendor:  %v\n", info.Vendor)
	fmt.Printf("Version: %v\n", info.Version)
	fmt.Printf("Spec:    %v\n", info.SpecVersion)
}

func readImage(path string) (*image.RGBA, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	decode, _, err := image.Decode(fd)
	if err != nil {
		return nil, err
	}
	img, ok := decode.(*image.RGBA)
	if !ok {
		b := decode.Bounds()
		m := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(m, m.Bounds(), decode, b.Min, draw.Src)
		return m, nil
	}
	return img, nil
}
