package cisco

import (
	"context"
	"testing"
)

func TestFileSize(t *testing.T) {
	tests := []struct {
		name     string
		family   OSFamily
		fs       string
		file     string
		command  string
		output   string
		wantName string
		wantSize int64
	}{
		{
			name:    "ios",
			family:  IOS,
			fs:      "flash",
			file:    "c2960x-universalk9-mz.152-7.E2.bin",
			command: "dir flash:/ | include c2960x-universalk9-mz.152-7.E2.bin",
			output: "    2  -rwx    26789376   Mar 1 1993 00:05:12 +00:00  c2960x-universalk9-mz.152-7.E2.bin\n" +
				"    3  -rwx    26789000   Mar 1 1993 00:05:12 +00:00  c2960x-universalk9-mz.152-7.E2.bin.old",
			wantName: "c2960x-universalk9-mz.152-7.E2.bin",
			wantSize: 26789376,
		},
		{
			name:     "directory skipped",
			family:   IOSXE,
			fs:       "bootflash",
			file:     "guest-share",
			command:  "dir bootflash:/ | include guest-share",
			output:   "   16  drwx     4096  Jan 12 2021 10:01:02 +00:00  guest-share",
			wantSize: -1,
		},
		{
			name:    "asa unfiltered",
			family:  ASA,
			fs:      "disk0",
			file:    "asa9-12-4-28-smp-k8.bin",
			command: "dir disk0:/",
			output: "Directory of disk0:/\n\n" +
				"122    -rwx  37867424     10:47:52 Jul 24 2019  asa9-12-4-28-smp-k8.bin\n" +
				"123    drwx  4096         10:47:52 Jul 24 2019  log\n\n" +
				"8571076608 bytes total (8388608000 bytes free)",
			wantName: "asa9-12-4-28-smp-k8.bin",
			wantSize: 37867424,
		},
		{
			name:     "nxos",
			family:   NXOS,
			fs:       "bootflash",
			file:     "nxos.9.3.8.bin",
			command:  "dir bootflash:/ | include nxos.9.3.8.bin",
			output:   "   1978203648    Sep 02 17:25:36 2021  nxos.9.3.8.bin",
			wantName: "nxos.9.3.8.bin",
			wantSize: 1978203648,
		},
		{
			name:     "nxos directory",
			family:   NXOS,
			fs:       "bootflash",
			file:     "scripts",
			command:  "dir bootflash:/ | include scripts",
			output:   "       4096    Sep 02 17:25:36 2021  scripts/",
			wantSize: -1,
		},
		{
			name:     "no output",
			family:   IOS,
			fs:       "flash",
			file:     "missing.bin",
			command:  "dir flash:/ | include missing.bin",
			wantSize: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ch := newTestDevice(tt.family, map[string]string{tt.command: tt.output})
			name, size, err := d.FileSize(context.Background(), tt.fs, tt.file, "")
			if err != nil {
				t.Fatalf("FileSize() error: %v", err)
			}
			if name != tt.wantName || size != tt.wantSize {
				t.Errorf("FileSize() = (%q, %d), want (%q, %d)", name, size, tt.wantName, tt.wantSize)
			}
			if len(ch.Sent) != 1 || ch.Sent[0] != tt.command {
				t.Errorf("sent %q, want %q", ch.Sent, tt.command)
			}
		})
	}
}
