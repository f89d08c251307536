package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/storage"
)

// seedFile is the YAML layout accepted by `quizd seed`.
type seedFile struct {
	Users []struct {
		auth.User `yaml:",inline"`
		Password  string `yaml:"password"`
	} `yaml:"users"`
	// MediaDir resolves relative media paths; defaults to the seed file's directory.
	MediaDir  string          `yaml:"media_dir"`
	Questions []quiz.Question `yaml:"questions"`
}

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Load users, questions and their media from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		sf, err := readSeed(args[0])
		if err != nil {
			return err
		}
		ctx := context.Background()
		store, dbh, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		if dbh != nil {
			defer dbh.Close()
		}
		blobs, err := storage.NewFSStore(cfg.BlobBasePath)
		if err != nil {
			return fmt.Errorf("blob store: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(sf.Users) > 0 {
			if dbh == nil {
				return errors.New("users need a sql database")
			}
			users := auth.NewUserRepo(dbh)
			for _, u := range sf.Users {
				stored, err := users.Upsert(ctx, u.User, u.Password)
				if err != nil {
					return fmt.Errorf("seed user %s: %w", u.Username, err)
				}
				fmt.Fprintf(out, "user %s (%s) id=%s\n", stored.Username, stored.Role, stored.ID)
			}
		}

		for i := range sf.Questions {
			if err := uploadMedia(blobs, sf.MediaDir, &sf.Questions[i]); err != nil {
				return err
			}
		}
		n, err := quiz.NewService(store).ImportQuestions(ctx, "seed", sf.Questions)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "imported %d questions\n", n)
		return nil
	},
}

func readSeed(p string) (seedFile, error) {
	f, err := os.Open(p)
	if err != nil {
		return seedFile{}, err
	}
	defer f.Close()
	var sf seedFile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil && !errors.Is(err, io.EOF) {
		return seedFile{}, fmt.Errorf("parse %s: %w", p, err)
	}
	if sf.MediaDir == "" {
		sf.MediaDir = filepath.Dir(p)
	} else if !filepath.IsAbs(sf.MediaDir) {
		sf.MediaDir = filepath.Join(filepath.Dir(p), sf.MediaDir)
	}
	return sf, nil
}

// uploadMedia copies local media files of q into the blob store and rewrites their paths to blob keys.
func uploadMedia(blobs storage.BlobStore, dir string, q *quiz.Question) error {
	put := func(list []quiz.Media) error {
		for i := range list {
			m := &list[i]
			if m.Type == quiz.MediaURL || m.Path == "" {
				continue
			}
			f, err := os.Open(filepath.Join(dir, filepath.FromSlash(m.Path)))
			if err != nil {
				return fmt.Errorf("question %s media: %w", q.ID, err)
			}
			name := path.Base(filepath.ToSlash(m.Path))
			key, err := blobs.Put("questions/"+q.ID+"/"+name, f)
			f.Close()
			if err != nil {
				return fmt.Errorf("question %s media: %w", q.ID, err)
			}
			if m.OriginalName == "" {
				m.OriginalName = name
			}
			m.Path, m.Filename = key, name
		}
		return nil
	}
	if err := put(q.Media); err != nil {
		return err
	}
	if err := put(q.ExplanationMedia); err != nil {
		return err
	}
	for i := range q.Options {
		if err := put(q.Options[i].Media); err != nil {
			return err
		}
	}
	return nil
}
