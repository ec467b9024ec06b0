// Copyright 2019 Northern.tech AS
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

// Command ota-install drives a single A/B install run from a staged
// bundle. Argument parsing, logging sinks and signal wiring are this
// binary's own concern; the install engine itself knows nothing about
// any of them.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/tegraota/otainstaller/bundle"
	"github.com/tegraota/otainstaller/installer"
	"github.com/tegraota/otainstaller/journal"
	"github.com/tegraota/otainstaller/slotcontrol"
	"github.com/tegraota/otainstaller/system"
	"github.com/tegraota/otainstaller/utils"
	"github.com/tegraota/otainstaller/verifier"
)

const (
	exitSuccess = 0
	exitFailed  = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	app := &cli.App{
		Name:  "ota-install",
		Usage: "apply an A/B over-the-air update bundle",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "bundle path or '-' to read a staged tar from stdin",
				Value:   "-",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "raise log level to debug",
			},
			&cli.StringFlag{
				Name:  "target-slot",
				Usage: "accepted but not applied: the target is always the slot other than the detected current one",
			},
			&cli.StringFlag{
				Name:  "journal",
				Usage: "path to the journal state file",
				Value: "/var/lib/updater/state.json",
			},
			&cli.StringFlag{
				Name:  "boot-backend",
				Usage: "slot control backend: nvbootctrl or ubootenv",
				Value: "nvbootctrl",
			},
			&cli.StringFlag{
				Name:  "trust-bundle",
				Usage: "PEM public key file used for signature verification",
			},
			&cli.Uint64Flag{
				Name:  "fsync-interval-bytes",
				Value: 10 << 20,
			},
			&cli.Uint64Flag{
				Name:  "progress-interval-bytes",
				Value: 1 << 20,
			},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("verbose") {
				log.SetLevel(log.DebugLevel)
			}
			return runInstall(c)
		},
	}

	if err := app.Run(args); err != nil {
		if _, ok := err.(cli.Exit); ok {
			return exitUsage
		}
		log.Errorf("ota-install: %v", err)
		return exitFailed
	}
	return exitSuccess
}

func runInstall(c *cli.Context) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	b, err := openBundle(c.String("input"))
	if err != nil {
		return fmt.Errorf("open bundle: %w", err)
	}
	defer b.Close()

	slots, err := newSlotControl(c.String("boot-backend"))
	if err != nil {
		return err
	}

	eng := installer.NewEngine(slots, installer.EngineOptions{
		FsyncIntervalBytes:    c.Uint64("fsync-interval-bytes"),
		ProgressIntervalBytes: c.Uint64("progress-interval-bytes"),
		TrustBundlePath:       c.String("trust-bundle"),
	})
	eng.Journal = journal.New(c.String("journal"))
	eng.Verifier = combinedVerifier{
		hash: verifier.NewHashVerifier(),
		sig:  verifier.NewSignatureVerifier(),
	}

	sink := utils.NewCLIProgressSink()
	eng.Progress = func(r installer.ProgressRecord) {
		sink.Report(r.Percent, r.Message, r.Final)
	}

	return eng.Run(ctx, b)
}

func openBundle(input string) (bundle.Bundle, error) {
	if input == "-" {
		return bundle.NewStdinBundle(os.Stdin)
	}
	return bundle.NewDirBundle(input)
}

func newSlotControl(backend string) (slotcontrol.SlotControl, error) {
	cmd := system.OsCalls{}
	switch backend {
	case "nvbootctrl":
		return slotcontrol.NewNvBootCtl(cmd), nil
	case "ubootenv":
		return slotcontrol.NewUBootEnv(cmd, "boot_slot"), nil
	default:
		return nil, fmt.Errorf("unknown boot backend %q", backend)
	}
}

// combinedVerifier adapts the two single-purpose verifier types into
// the one Verifier capability the engine expects.
type combinedVerifier struct {
	hash *verifier.HashVerifier
	sig  *verifier.SignatureVerifier
}

func (v combinedVerifier) VerifyHash(ctx context.Context, r io.Reader, expectedHex string, progress verifier.ProgressFunc) (bool, error) {
	return v.hash.VerifyHash(ctx, r, expectedHex, progress)
}

func (v combinedVerifier) VerifySignature(artifactPath, signaturePath, trustBundlePath string) (bool, error) {
	return v.sig.VerifySignature(artifactPath, signaturePath, trustBundlePath)
}
