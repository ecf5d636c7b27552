package invoice

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	ErrInvalidNumber = errors.New("invalid invoice number")
	ErrPDFNotFound   = errors.New("invoice pdf not found")
	ErrEmptyPDF      = errors.New("empty pdf")
)

// PDFStore keeps caller-rendered invoice PDFs on disk, one file per invoice number.
// Bytes are stored verbatim.
type PDFStore struct {
	dir string
}

// NewPDFStore creates the directory if needed
func NewPDFStore(dir string) (*PDFStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create invoice dir: %w", err)
	}
	return &PDFStore{dir: dir}, nil
}

// Path returns where an invoice's PDF lives
func (s *PDFStore) Path(number string) (string, error) {
	if !ValidNumber(number) {
		return "", ErrInvalidNumber
	}
	return filepath.Join(s.dir, number+".pdf"), nil
}

// Save writes the PDF, replacing any previous upload for the same invoice
func (s *PDFStore) Save(number string, pdf []byte) (string, error) {
	path, err := s.Path(number)
	if err != nil {
		return "", err
	}
	if len(pdf) == 0 {
		return "", ErrEmptyPDF
	}

	tmp, err := os.CreateTemp(s.dir, number+".*.tmp")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(pdf); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return path, nil
}

// Open returns the path of an existing PDF
func (s *PDFStore) Open(number string) (string, error) {
	path, err := s.Path(number)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrPDFNotFound
		}
		return "", err
	}
	return path, nil
}
