package main

import "io"

func runConfig(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("config", stderr)
	c := addCommon(fs)
	write := fs.String("write", "", "write the effective configuration to this path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := c.load()
	if err != nil {
		return err
	}

	if *write != "" {
		if err := cfg.SaveToFile(*write); err != nil {
			return err
		}
		c.logger(stderr).Info("wrote configuration", "path", *write)
		return nil
	}

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = stdout.Write(data)
	return err
}
