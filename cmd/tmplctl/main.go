package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"
	"tmpl-backend/pkg/client"

	"github.com/schollz/progressbar/v3"
)

func main() {
	var (
		server    string
		params    client.Parameters
		visualize bool
		list      int
		timeout   time.Duration
	)

	flag.StringVar(&server, "server", "http://localhost:3000", "base url of the server")
	flag.StringVar(&params.Mode, "mode", "", "model variant (server default when empty)")
	flag.IntVar(&params.K, "k", 0, "number of topics (server default when 0)")
	flag.StringVar(&params.Dist, "dist", "", "distance function (server default when empty)")
	flag.IntVar(&params.Num, "num", 0, "number of results (server default when 0)")
	flag.BoolVar(&visualize, "visualize", false, "ask for the precomputed visualization instead of uploading")
	flag.IntVar(&list, "list", 0, "list the N most recent submissions")
	flag.DurationVar(&timeout, "timeout", 15*time.Minute, "overall request timeout")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <document.pdf>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	c := client.New(server, timeout)
	ctx := context.Background()

	switch {
	case list > 0:
		subs, err := c.ListSubmissions(ctx, list)
		if err != nil {
			log.Fatalf("error listing submissions: %v", err)
		}
		for _, sub := range subs {
			fmt.Printf("%s\t%s\t%s\t%s/%d\n", sub.Id, sub.Status, sub.OriginalName, sub.Parameters.ModelVariant, sub.Parameters.TopicCount)
		}

	case visualize:
		res, err := c.Visualize(ctx, params)
		if err != nil {
			log.Fatalf("error requesting visualization: %v", err)
		}
		fmt.Println(server + res.Location)

	default:
		if flag.NArg() != 1 {
			flag.Usage()
			os.Exit(2)
		}
		path := flag.Arg(0)

		info, err := os.Stat(path)
		if err != nil {
			log.Fatalf("error reading %s: %v", path, err)
		}

		bar := progressbar.NewOptions64(info.Size(),
			progressbar.OptionSetDescription("uploading"),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionClearOnFinish(),
		)

		res, err := c.Submit(ctx, path, params, func(r io.Reader) io.Reader {
			reader := progressbar.NewReader(r, bar)
			return &reader
		})
		if err != nil {
			log.Fatalf("error submitting %s: %v", path, err)
		}

		fmt.Fprintf(os.Stderr, "Processing %s... (submission %s)\n", res.Filename, res.SubmissionId)
		fmt.Print(res.Output)
		if res.Truncated {
			fmt.Fprintln(os.Stderr, "output was truncated by the server")
		}
	}
}
