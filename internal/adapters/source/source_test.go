package source_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/covidtrend/internal/adapters/source"
	. "github.com/smartystreets/goconvey/convey"
)

const sampleCSV = "Province/State,Country/Region,Lat,Long,1/22/20,1/23/20\n" +
	",Italy,41.87,12.56,0,1\n" +
	"Ontario,Canada,51.25,-85.32,0,0\n"

func TestFetcherHTTP(t *testing.T) {
	Convey("Given a server serving the deaths CSV", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/deaths.csv":
				w.Header().Set("Content-Type", "text/csv")
				_, _ = w.Write([]byte(sampleCSV))
			case "/slow.csv":
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			default:
				http.Error(w, strings.Repeat("x", 500), http.StatusNotFound)
			}
		}))
		defer srv.Close()

		f := source.NewFetcher(source.WithHTTPClient(srv.Client()), source.WithTimeout(200*time.Millisecond))
		ctx := context.Background()

		Convey("When fetching the CSV", func() {
			tbl, err := f.Fetch(ctx, srv.URL+"/deaths.csv")

			Convey("Then header and records are decoded", func() {
				So(err, ShouldBeNil)
				So(tbl.Header, ShouldResemble, []string{"Province/State", "Country/Region", "Lat", "Long", "1/22/20", "1/23/20"})
				So(tbl.Records, ShouldHaveLength, 2)
				So(tbl.Records[1][0], ShouldEqual, "Ontario")
			})
		})

		Convey("When the server answers with an error status", func() {
			tbl, err := f.Fetch(ctx, srv.URL+"/missing.csv")

			Convey("Then the fetch fails with a truncated body", func() {
				So(tbl, ShouldBeNil)
				So(errors.Is(err, source.ErrStatus), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "404")
				So(err.Error(), ShouldContainSubstring, "...")
				So(len(err.Error()), ShouldBeLessThan, 400)
			})
		})

		Convey("When the server is slower than the timeout", func() {
			_, err := f.Fetch(ctx, srv.URL+"/slow.csv")

			Convey("Then the fetch fails", func() {
				So(errors.Is(err, source.ErrFetch), ShouldBeTrue)
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			})
		})
	})
}

func TestFetcherFile(t *testing.T) {
	Convey("Given a CSV on disk", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "deaths.csv")
		So(os.WriteFile(path, []byte("\ufeff"+sampleCSV), 0o600), ShouldBeNil)
		f := source.NewFetcher()

		Convey("When fetching by plain path", func() {
			tbl, err := f.Fetch(context.Background(), path)

			Convey("Then the byte order mark is stripped", func() {
				So(err, ShouldBeNil)
				So(tbl.Header[0], ShouldEqual, "Province/State")
			})
		})

		Convey("When fetching with a file:// prefix", func() {
			tbl, err := f.Fetch(context.Background(), "file://"+path)

			Convey("Then it reads the same file", func() {
				So(err, ShouldBeNil)
				So(tbl.Records, ShouldHaveLength, 2)
			})
		})

		Convey("When the file does not exist", func() {
			_, err := f.Fetch(context.Background(), filepath.Join(dir, "nope.csv"))

			Convey("Then ErrFetch is returned", func() {
				So(errors.Is(err, source.ErrFetch), ShouldBeTrue)
				So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
			})
		})

		Convey("When the location is blank", func() {
			_, err := f.Fetch(context.Background(), "  ")

			Convey("Then ErrFetch is returned", func() {
				So(errors.Is(err, source.ErrFetch), ShouldBeTrue)
			})
		})
	})
}

func TestDecode(t *testing.T) {
	Convey("Given malformed CSV input", t, func() {
		Convey("When the input is empty", func() {
			_, err := source.Decode(strings.NewReader(""))

			Convey("Then ErrDecode is returned", func() {
				So(errors.Is(err, source.ErrDecode), ShouldBeTrue)
			})
		})

		Convey("When a record is ragged", func() {
			_, err := source.Decode(strings.NewReader("a,b,c\n1,2\n"))

			Convey("Then ErrDecode is returned", func() {
				So(errors.Is(err, source.ErrDecode), ShouldBeTrue)
			})
		})

		Convey("When there is only a header", func() {
			tbl, err := source.Decode(strings.NewReader("a,b\n"))

			Convey("Then the table has no records", func() {
				So(err, ShouldBeNil)
				So(tbl.Records, ShouldBeEmpty)
			})
		})
	})
}
