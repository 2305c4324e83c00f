package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"symptomcheck/artifacts"
	"symptomcheck/client"
	"symptomcheck/predictor"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: symptomctl [flags] <command> [args]

commands:
  health                  server status
  symptoms                list known symptoms
  predict <s1,s2,...>     diagnose a symptom list

flags:
`)
	flag.PrintDefaults()
}

func main() {
	addr := flag.String("addr", "http://localhost:8000", "prediction server base URL")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	local := flag.String("artifacts", "", "predict from this artifact directory instead of a server")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var (
		out any
		err error
	)
	if *local != "" {
		out, err = runLocal(ctx, *local, flag.Args())
	} else {
		out, err = runRemote(ctx, client.New(*addr, *timeout), flag.Args())
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) && errors.Is(err, client.ErrAmbiguous) {
		fmt.Fprintf(os.Stderr, "no majority: rf=%s nb=%s svm=%s\n", apiErr.RandomForest, apiErr.NaiveBayes, apiErr.SVM)
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%s: %v", flag.Arg(0), err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal(err)
	}
}

func runRemote(ctx context.Context, c *client.Client, args []string) (any, error) {
	switch args[0] {
	case "health":
		return c.Health(ctx)
	case "symptoms":
		return c.Symptoms(ctx)
	case "predict":
		if len(args) < 2 {
			return nil, errors.New("missing symptom list")
		}
		return c.Predict(ctx, strings.Join(args[1:], ","))
	default:
		return nil, fmt.Errorf("unknown command %q", args[0])
	}
}

func runLocal(ctx context.Context, dir string, args []string) (any, error) {
	cfg := artifacts.DefaultConfig()
	cfg.Dir = dir
	bundle, err := artifacts.Load(cfg)
	if err != nil {
		return nil, err
	}
	svc := predictor.New(bundle)

	switch args[0] {
	case "symptoms":
		return svc.Symptoms(), nil
	case "predict":
		if len(args) < 2 {
			return nil, errors.New("missing symptom list")
		}
		r, err := svc.Predict(ctx, strings.Join(args[1:], ","))
		var ambiguous *predictor.AmbiguousVoteError
		if errors.As(err, &ambiguous) {
			return ambiguous.Predictions, err
		}
		return r, err
	default:
		return nil, fmt.Errorf("command %q needs a server", args[0])
	}
}
