package cmd

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/semi-technologies/spmfgen/pkg/spmf"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[1;31m"
	colorYellow = "\033[0;33m"
	colorWhite  = "\033[0;37m"
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "%s%s%s\n", colorRed, err.Error(), colorReset)

	var samplingErr *spmf.SamplingError
	if errors.As(err, &samplingErr) {
		fmt.Fprintf(os.Stderr, "%sincrease --item-universe-size or lower --mean-itemset-size%s\n",
			colorYellow, colorReset)
	}

	os.Exit(1)
}

func infof(msg string, format ...interface{}) {
	formatted := fmt.Sprintf(msg, format...)
	fmt.Fprintf(os.Stderr, "%s%s%s\n", colorWhite, formatted, colorReset)
}
