/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */
package preview

import (
	"fmt"
	"os"
	"path/filepath"

	"escapedash/internal/domain"
)

// SavePNG writes the thumbnail of l to path, creating parent directories.
func SavePNG(path string, l domain.Layout, opt Options) error {
	return writeFile(path, func(f *os.File) error { return WritePNG(f, l, opt) })
}

// SavePDF writes the overview of sheets to path, creating parent directories.
func SavePDF(path string, sheets []Sheet, opt PDFOptions) error {
	return writeFile(path, func(f *os.File) error { return WritePDF(f, sheets, opt) })
}

func writeFile(path string, write func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	return nil
}
