// Package token はGarminトークン材料の保管場所を管理する。
// 材料そのもの(oauth1/oauth2ドキュメント)は不透明なバイト列として扱い、
// 中身の解釈はセッション層に委ねる。
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// 保管場所が未設定の場合に使う既定値。
const (
	DefaultDir  = "/data/garmin_tokens"
	DefaultFile = "/data/garmintokens.json"
)

// 2ファイル形式のファイル名。
const (
	OAuth1FileName = "oauth1_token.json"
	OAuth2FileName = "oauth2_token.json"
)

// ErrNoMaterial は保管場所にトークン材料が存在しないことを表す。
var ErrNoMaterial = errors.New("token material not found")

// Layout はトークン保管場所の形式を表す。
type Layout string

const (
	// LayoutDir はoauth1_token.json/oauth2_token.jsonの2ファイルを置くディレクトリ形式。
	LayoutDir Layout = "dir"
	// LayoutFile は結合ドキュメントを置く単一ファイル形式。
	LayoutFile Layout = "file"
)

// Store は解決済みのトークン保管場所を表す。
type Store struct {
	path   string
	layout Layout
}

// Material は保管場所から読み出した不透明なトークン材料を表す。
type Material struct {
	OAuth1 json.RawMessage
	OAuth2 json.RawMessage
}

// InlineMaterial は環境変数経由でインライン供給されたトークン材料を表す。
type InlineMaterial struct {
	OAuth1JSON string
	OAuth2JSON string
	BlobJSON   string
}

// empty は書き込むべき材料が何も供給されていないことを返す。
func (m InlineMaterial) empty() bool {
	return m.OAuth1JSON == "" && m.OAuth2JSON == "" && m.BlobJSON == ""
}

// 単一ファイル形式で使う結合ドキュメントの封筒。中身の各ドキュメントは不透明のまま保持する。
type combinedDocument struct {
	OAuth1 json.RawMessage `json:"oauth1"`
	OAuth2 json.RawMessage `json:"oauth2"`
}

// Resolve は設定値と既定の場所からトークン保管場所を決定する。
// 明示設定があればそれを使い、なければ既定ディレクトリ、
// それも存在しなければ既定の単一ファイルパスへフォールバックする。
func Resolve(configured string) *Store {
	path := configured
	if path == "" {
		if info, err := os.Stat(DefaultDir); err == nil && info.IsDir() {
			path = DefaultDir
		} else {
			path = DefaultFile
		}
	}
	return &Store{path: path, layout: detectLayout(path)}
}

// detectLayout はパスの実体または拡張子から保管形式を判定する。
// 実体が無い場合は.json拡張子を単一ファイル形式とみなす。
func detectLayout(path string) Layout {
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return LayoutDir
		}
		return LayoutFile
	}
	if strings.HasSuffix(path, ".json") {
		return LayoutFile
	}
	return LayoutDir
}

// Path は解決済みの保管場所パスを返す。
func (s *Store) Path() string {
	return s.path
}

// Layout は保管場所の形式を返す。
func (s *Store) Layout() Layout {
	return s.layout
}

// HasMaterial は保管場所にトークン材料が揃っているかを返す。
func (s *Store) HasMaterial() bool {
	switch s.layout {
	case LayoutDir:
		return fileExists(filepath.Join(s.path, OAuth1FileName)) &&
			fileExists(filepath.Join(s.path, OAuth2FileName))
	default:
		return fileExists(s.path)
	}
}

// Bootstrap はインライン供給された材料を保管場所へ1回だけ書き込む。
// 既に材料が存在する場合は既存ファイルを一切変更せずfalseを返す(冪等)。
// 書き込んだ場合はtrueを返す。
func (s *Store) Bootstrap(m InlineMaterial) (bool, error) {
	if m.empty() {
		return false, nil
	}
	if s.HasMaterial() {
		return false, nil
	}

	oauth1, oauth2, err := m.documents()
	if err != nil {
		return false, err
	}
	if oauth1 == nil || oauth2 == nil {
		return false, nil
	}

	if err := s.write(oauth1, oauth2); err != nil {
		return false, err
	}
	return true, nil
}

// documents はインライン材料をoauth1/oauth2の2ドキュメントへ揃える。
// 結合ドキュメントのみ供給された場合は封筒を分解する。
func (m InlineMaterial) documents() (oauth1, oauth2 []byte, err error) {
	if m.OAuth1JSON != "" && m.OAuth2JSON != "" {
		return []byte(m.OAuth1JSON), []byte(m.OAuth2JSON), nil
	}
	if m.BlobJSON != "" {
		var doc combinedDocument
		if err := json.Unmarshal([]byte(m.BlobJSON), &doc); err != nil {
			return nil, nil, fmt.Errorf("invalid combined token document: %w", err)
		}
		if len(doc.OAuth1) == 0 || len(doc.OAuth2) == 0 {
			return nil, nil, fmt.Errorf("combined token document must contain oauth1 and oauth2")
		}
		return doc.OAuth1, doc.OAuth2, nil
	}
	return nil, nil, nil
}

// Save は再発行された材料で保管場所を上書きする。
// ブートストラップと異なり既存材料も置き換える(認証情報ログイン後の更新用)。
func (s *Store) Save(oauth1, oauth2 []byte) error {
	return s.write(oauth1, oauth2)
}

// Read は保管場所からトークン材料を読み出す。
// 材料が存在しない場合はErrNoMaterialを返す。
func (s *Store) Read() (*Material, error) {
	if !s.HasMaterial() {
		return nil, ErrNoMaterial
	}

	switch s.layout {
	case LayoutDir:
		oauth1, err := os.ReadFile(filepath.Join(s.path, OAuth1FileName))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", OAuth1FileName, err)
		}
		oauth2, err := os.ReadFile(filepath.Join(s.path, OAuth2FileName))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", OAuth2FileName, err)
		}
		return &Material{OAuth1: oauth1, OAuth2: oauth2}, nil
	default:
		data, err := os.ReadFile(s.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read token file: %w", err)
		}
		var doc combinedDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid combined token file: %w", err)
		}
		return &Material{OAuth1: doc.OAuth1, OAuth2: doc.OAuth2}, nil
	}
}

// write は形式に応じて材料を書き込む。各ファイルはアトミックに置き換える。
func (s *Store) write(oauth1, oauth2 []byte) error {
	switch s.layout {
	case LayoutDir:
		if err := os.MkdirAll(s.path, 0o700); err != nil {
			return fmt.Errorf("failed to create token dir: %w", err)
		}
		if err := writeFileAtomic(filepath.Join(s.path, OAuth1FileName), oauth1); err != nil {
			return err
		}
		return writeFileAtomic(filepath.Join(s.path, OAuth2FileName), oauth2)
	default:
		if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
			return fmt.Errorf("failed to create token dir: %w", err)
		}
		data, err := json.Marshal(combinedDocument{OAuth1: oauth1, OAuth2: oauth2})
		if err != nil {
			return fmt.Errorf("failed to encode combined token file: %w", err)
		}
		return writeFileAtomic(s.path, data)
	}
}

// writeFileAtomic は一時ファイルへ書いてからリネームで置き換える。
// 同時にブートストラップが走ってもトークン材料が壊れた状態にならない。
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tokens-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
