package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/grocery-ledger/internal/extract"
	"github.com/zombor/grocery-ledger/internal/lineitem"
)

// multipartUpload builds a multipart body with the given files under the
// "file" field plus optional extra form fields.
func multipartUpload(files map[string][]byte, fields map[string]string) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, data := range files {
		part, err := writer.CreateFormFile("file", name)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(data)
		Expect(err).NotTo(HaveOccurred())
	}
	for name, value := range fields {
		Expect(writer.WriteField(name, value)).To(Succeed())
	}
	Expect(writer.Close()).To(Succeed())
	return body, writer.FormDataContentType()
}

var _ = Describe("Server", func() {
	var (
		db        *mockDB
		extractor *mockExtractor
		storage   *mockStorage
		batch     *Ledger
		service   *Service
		server    *Server
		basicAuth BasicAuth
		recorder  *httptest.ResponseRecorder
	)

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		batch = NewLedger()
		basicAuth = BasicAuth{}
		extractor = &mockExtractor{
			doc: &extract.Document{
				LineItems: []lineitem.RawLineItem{
					{Description: "MILK", TotalAmount: lineitem.AmountOf(3.49)},
					{Description: "2 @ 1.75"},
					{Description: "MILK -", TotalAmount: lineitem.AmountText("0.50-")},
				},
				Date:        "2024-01-15",
				TotalAmount: f(2.99),
			},
		}
		service = NewServiceWithDeps(db, extractor, storage, batch,
			&fixedIDGenerator{ids: []string{"id-1", "id-2", "id-3"}},
			&fixedTimeSource{now: time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)},
		)
		recorder = httptest.NewRecorder()
	})

	JustBeforeEach(func() {
		server = NewServerWithMux(service, basicAuth, http.NewServeMux())
	})

	Describe("POST /api/receipts", func() {
		It("processes an uploaded receipt", func() {
			body, contentType := multipartUpload(map[string][]byte{"store.jpg": []byte("image")}, nil)
			req := httptest.NewRequest("POST", "/api/receipts", body)
			req.Header.Set("Content-Type", contentType)
			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusCreated))

			var resp struct {
				Receipts []*ReceiptResult `json:"receipts"`
			}
			Expect(json.Unmarshal(recorder.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Receipts).To(HaveLen(1))
			Expect(resp.Receipts[0].Entries).To(HaveLen(1))
			Expect(resp.Receipts[0].Entries[0].Description).To(Equal("MILK"))
		})

		It("applies a date override to the batch", func() {
			body, contentType := multipartUpload(
				map[string][]byte{"store.jpg": []byte("image")},
				map[string]string{"date": "2024-02-01"},
			)
			req := httptest.NewRequest("POST", "/api/receipts", body)
			req.Header.Set("Content-Type", contentType)
			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusCreated))
			Expect(batch.Receipts()[0].Date.Format("2006-01-02")).To(Equal("2024-02-01"))
		})

		It("rejects a malformed date override", func() {
			body, contentType := multipartUpload(
				map[string][]byte{"store.jpg": []byte("image")},
				map[string]string{"date": "02/01/2024"},
			)
			req := httptest.NewRequest("POST", "/api/receipts", body)
			req.Header.Set("Content-Type", contentType)
			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects a request without files", func() {
			body, contentType := multipartUpload(nil, map[string]string{"date": "2024-02-01"})
			req := httptest.NewRequest("POST", "/api/receipts", body)
			req.Header.Set("Content-Type", contentType)
			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		})

		When("extraction fails for every file", func() {
			BeforeEach(func() {
				extractor.extractErr = errors.New("ocr unavailable")
			})

			It("reports upstream failure and skips the batch", func() {
				body, contentType := multipartUpload(map[string][]byte{"store.jpg": []byte("image")}, nil)
				req := httptest.NewRequest("POST", "/api/receipts", body)
				req.Header.Set("Content-Type", contentType)
				server.ServeHTTP(recorder, req)

				Expect(recorder.Code).To(Equal(http.StatusBadGateway))

				var resp struct {
					Errors []uploadError `json:"errors"`
				}
				Expect(json.Unmarshal(recorder.Body.Bytes(), &resp)).To(Succeed())
				Expect(resp.Errors).To(HaveLen(1))
				Expect(resp.Errors[0].Filename).To(Equal("store.jpg"))
				Expect(batch.Receipts()).To(BeEmpty())
			})
		})
	})

	Describe("GET /api/ledger", func() {
		BeforeEach(func() {
			_, err := service.ProcessReceipt("store.jpg", []byte("image"), "image/jpeg", "")
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns the rows and grand total", func() {
			req := httptest.NewRequest("GET", "/api/ledger", nil)
			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusOK))

			var resp ledgerResponse
			Expect(json.Unmarshal(recorder.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Rows).To(HaveLen(1))
			Expect(resp.Rows[0].SourceFile).To(Equal("store.jpg"))
			Expect(resp.GrandTotal).To(Equal(2.99))
		})
	})

	Describe("GET /api/ledger/export.csv", func() {
		It("serves a CSV attachment", func() {
			req := httptest.NewRequest("GET", "/api/ledger/export.csv", nil)
			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(recorder.Header().Get("Content-Type")).To(ContainSubstring("text/csv"))
			Expect(recorder.Body.String()).To(ContainSubstring("GRAND TOTAL"))
		})
	})

	Describe("GET /api/ledger/export.xlsx", func() {
		It("serves an XLSX attachment", func() {
			req := httptest.NewRequest("GET", "/api/ledger/export.xlsx", nil)
			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(recorder.Header().Get("Content-Type")).To(ContainSubstring("spreadsheetml"))
			Expect(recorder.Body.Len()).NotTo(BeZero())
		})
	})

	Describe("GET /api/receipts/{id}", func() {
		BeforeEach(func() {
			_, err := service.ProcessReceipt("store.jpg", []byte("image"), "image/jpeg", "")
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns the receipt", func() {
			req := httptest.NewRequest("GET", "/api/receipts/id-1", nil)
			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusOK))

			var result ReceiptResult
			Expect(json.Unmarshal(recorder.Body.Bytes(), &result)).To(Succeed())
			Expect(result.ID).To(Equal("id-1"))
		})

		It("404s for an unknown receipt", func() {
			req := httptest.NewRequest("GET", "/api/receipts/missing", nil)
			server.ServeHTTP(recorder, req)
			Expect(recorder.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("GET /api/receipts/{id}/file", func() {
		BeforeEach(func() {
			_, err := service.ProcessReceipt("store.jpg", []byte("image"), "image/jpeg", "")
			Expect(err).NotTo(HaveOccurred())
		})

		It("serves the stored image", func() {
			req := httptest.NewRequest("GET", "/api/receipts/id-1/file", nil)
			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(recorder.Header().Get("Content-Type")).To(Equal("image/jpeg"))
			Expect(recorder.Body.Bytes()).To(Equal([]byte("image")))
		})
	})

	Describe("DELETE /api/receipts/{id}", func() {
		BeforeEach(func() {
			_, err := service.ProcessReceipt("store.jpg", []byte("image"), "image/jpeg", "")
			Expect(err).NotTo(HaveOccurred())
		})

		It("removes the receipt", func() {
			req := httptest.NewRequest("DELETE", "/api/receipts/id-1", nil)
			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusNoContent))
			Expect(db.receipts).To(BeEmpty())
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			basicAuth = BasicAuth{Username: "user", Password: "pass"}
		})

		It("rejects requests without credentials", func() {
			req := httptest.NewRequest("GET", "/api/ledger", nil)
			server.ServeHTTP(recorder, req)
			Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
		})

		It("accepts valid credentials", func() {
			req := httptest.NewRequest("GET", "/api/ledger", nil)
			req.SetBasicAuth("user", "pass")
			server.ServeHTTP(recorder, req)
			Expect(recorder.Code).To(Equal(http.StatusOK))
		})

		It("rejects wrong credentials", func() {
			req := httptest.NewRequest("GET", "/api/ledger", nil)
			req.SetBasicAuth("user", "wrong")
			server.ServeHTTP(recorder, req)
			Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
		})
	})
})
