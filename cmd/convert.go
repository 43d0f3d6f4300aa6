package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"commodoreconv/commodore"
	"commodoreconv/commodore/d64"
	"commodoreconv/commodore/g64"
	"commodoreconv/commodore/halftrack"
	"commodoreconv/commodore/i64"
	"commodoreconv/diagnostic"
	"commodoreconv/storage"
)

var (
	fromFormat string
	toFormat   string
)

func init() {
	convertCmd.Flags().StringVar(&fromFormat, "from", "", "source format override (d64, d71, g64, i64); default is inferred from SRC's extension")
	convertCmd.Flags().StringVar(&toFormat, "to", "", "destination format override; default is inferred from DST's extension")
	rootCmd.AddCommand(convertCmd)
}

var convertCmd = &cobra.Command{
	Use:                   "convert SRC DST",
	Short:                 "Convert a disk image from SRC's format to DST's format",
	Args:                  cobra.ExactArgs(2),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(args[0], args[1])
	},
}

// codecFor resolves the commodore.Codec for a media type, as named in
// spec §2 and §6.1.
func codecFor(media string) (commodore.Codec, error) {
	switch media {
	case "d64", "d71":
		return d64.Codec{}, nil
	case "g64":
		return g64.Codec{}, nil
	case "i64":
		return i64.Codec{}, nil
	default:
		return nil, fmt.Errorf("unrecognized format %q", media)
	}
}

// runConvert implements the convert subcommand: resolve both codecs, refuse
// to clobber an existing output file, decode src into the shared half-track
// model, and encode it to dst. If encoding fails after dst was created, the
// partial output file is removed before the error is reported.
func runConvert(src, dst string) error {
	log := diagnostic.Stderr()

	srcCodec, err := codecFor(mediaType(fromFormat, src))
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	dstCodec, err := codecFor(mediaType(toFormat, dst))
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}

	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("convert %s: %w", dst, commodore.ErrOutputExists)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("convert: checking %s: %w", dst, err)
	}

	inFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("convert: opening %s: %w", src, err)
	}
	defer inFile.Close()

	var img *halftrack.Image
	img, err = srcCodec.Decode(storage.NewReader(inFile), log)
	if err != nil {
		return fmt.Errorf("convert: decoding %s: %w", src, err)
	}

	outFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("convert: creating %s: %w", dst, err)
	}

	if err := dstCodec.Encode(img, storage.NewWriter(outFile), log); err != nil {
		outFile.Close()
		os.Remove(dst)
		return fmt.Errorf("convert: encoding %s: %w", dst, err)
	}
	if err := outFile.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("convert: closing %s: %w", dst, err)
	}

	return nil
}
