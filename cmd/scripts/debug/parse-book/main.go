package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"github.com/shishobooks/cyprus/pkg/audiobook"
	"github.com/shishobooks/cyprus/pkg/config"
	"github.com/shishobooks/cyprus/pkg/mediafile"
	"github.com/shishobooks/cyprus/pkg/mp4"
)

func main() {
	log := logger.NewWithLevel("debug")
	ctx := log.WithContext(context.Background())

	var opts struct {
		CoverOutput   string `short:"o" long:"cover-output" description:"A path to output the selected cover image"`
		Tracks        bool   `long:"tracks" description:"Print the track table of an mp4 file"`
		WriteCoverArt bool   `long:"write-cover-art" description:"Let the builder write cover_<name>.jpg next to the source"`
	}

	args, err := flags.Parse(&opts)
	if err != nil {
		log.Err(err).Fatal("flags parse error")
	}

	if len(args) != 1 {
		fmt.Println("go run ./cmd/scripts/debug/parse-book [-o cover.jpg] [--tracks] <path/to/book>")
		os.Exit(1)
	}
	path := args[0]

	info, err := os.Stat(path)
	if err != nil {
		log.Err(err).Fatal("stat error")
	}

	builder := mediafile.NewBuilder(&config.Config{CoverArtEnabled: opts.WriteCoverArt})
	var book *audiobook.Book
	if info.IsDir() {
		book, err = builder.FromFolder(ctx, path)
	} else {
		book, err = builder.FromFile(ctx, path)
	}
	if err != nil {
		log.Err(err).Fatal("build error")
	}

	out, err := json.MarshalIndent(book, "", "  ")
	if err != nil {
		log.Err(err).Fatal("json error")
	}
	fmt.Println(string(out))

	if info.IsDir() {
		return
	}

	if opts.Tracks {
		printTracks(log, path)
	}

	if opts.CoverOutput != "" {
		writeCover(ctx, log, path, opts.CoverOutput)
	}
}

func printTracks(log logger.Logger, path string) {
	c, err := mp4.Open(path)
	if err != nil {
		log.Err(err).Fatal("mp4 open error")
	}
	defer c.Close()

	fmt.Printf("\nMovie duration: %v\n", c.Duration())
	fmt.Printf("Tracks (%d):\n", len(c.Tracks()))
	for _, t := range c.Tracks() {
		track := c.Track(t.ID())
		mediaType, err := track.MediaType()
		kind := string(mediaType)
		if err != nil {
			kind = "unclassified"
		}
		fmt.Printf("  #%d handler=%s entry=%s timescale=%d samples=%d type=%s\n",
			track.ID(), track.HandlerType(), track.SampleEntry(), track.Timescale(), track.SampleCount(), kind)
	}
}

func writeCover(ctx context.Context, log logger.Logger, path, output string) {
	tagged, err := mediafile.ReadTags(ctx, path)
	if err != nil {
		log.Err(err).Fatal("tag read error")
	}
	tag := tagged.PrimaryTag()
	if tag == nil {
		fmt.Println("No primary tag")
		return
	}
	picture := audiobook.SelectPicture(tag.Pictures())
	if picture == nil {
		fmt.Println("No cover picture")
		return
	}
	if err := os.WriteFile(output, picture.Data, 0644); err != nil { //nolint:gosec
		log.Err(err).Fatal("file write error")
	}
	fmt.Printf("Wrote %s cover (%d bytes) to %s\n", picture.MIMEType, len(picture.Data), output)
}
