package restyutil

import (
	"fmt"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

type InstrumentOutput interface {
	Write(id string, contents string)
}

// InstrumentClient dumps every completed round trip of `client` into `output`.
// `output` can be nil, if it is, then the function is a no-op.
// Query parameters named in `redact` are masked in the dumped url.
func InstrumentClient(client *resty.Client, output InstrumentOutput, redact ...string) {
	if output == nil {
		return
	}

	var idcounter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := atomic.AddUint64(&idcounter, 1)
		output.Write(fmt.Sprintf("%04d.txt", id), formatHttpMessage(res, redact))
		return nil
	})
}
