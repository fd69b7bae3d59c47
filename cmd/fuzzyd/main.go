// Command fuzzyd serves a fuzzy inference system over HTTP.
//
// The model is loaded from a JSON definition (-model) or imported from a
// MATLAB-style rule file (-fis). With -native the model is additionally
// compiled to a native routine and evaluation goes through it; if the
// toolchain is unavailable the daemon falls back to the interpreted
// evaluator.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ezachrisen/mamdani"
	"github.com/ezachrisen/mamdani/mfile"
	"github.com/ezachrisen/mamdani/native"
	"github.com/ezachrisen/mamdani/server"
	"github.com/pkg/errors"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := flag.NewFlagSet(args[0], flag.ContinueOnError)
	flags.Usage = func() {
		fmt.Println(args[0] + ` usage:
	fuzzyd -model=model.json [-addr=:8080] [-native] [-cc=cc]
	fuzzyd -fis=controller.fis [-addr=:8080] [-native] [-cc=cc]`)
	}

	var (
		model     = flags.String("model", "", "path to a JSON model definition")
		fisFile   = flags.String("fis", "", "path to a MATLAB-style .fis file")
		addr      = flags.String("addr", ":8080", "listen address")
		useNative = flags.Bool("native", false, "compile the model to a native routine")
		cc        = flags.String("cc", "cc", "C compiler to use with -native")
	)
	if err := flags.Parse(args[1:]); err != nil {
		return err
	}

	fis, err := load(*model, *fisFile)
	if err != nil {
		return err
	}
	log.Printf("loaded model: %d inputs, %d rules, output %s",
		len(fis.Inputs), len(fis.Rules), fis.Target.Name)

	svc := server.New(fis)
	if *useNative {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		compiled, err := native.Compile(ctx, fis, native.WithCC(*cc))
		if err != nil {
			log.Printf("native compilation failed, using the interpreted evaluator: %s", err)
		} else {
			defer compiled.Close()
			log.Printf("compiled native model (%s of C source)", humanize.Bytes(uint64(len(compiled.Source()))))
			svc = server.NewCompiled(fis, compiled)
		}
	}

	log.Printf("listening on %s", *addr)
	return http.ListenAndServe(*addr, svc.Handler())
}

func load(model, fisFile string) (*mamdani.FIS, error) {
	switch {
	case model != "" && fisFile != "":
		return nil, errors.New("-model and -fis are mutually exclusive")
	case model != "":
		return mamdani.Load(model)
	case fisFile != "":
		return mfile.Read(fisFile)
	default:
		return nil, errors.New("one of -model or -fis is required")
	}
}
