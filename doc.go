// Package fetchkit downloads files over SFTP and FTP and bulk-extracts zip
// archives. It backs the sftp-get-dir, sftp-get, ftp-get and unzip-all
// commands.
//
// Every operation is sequential: one connection, one bounded task, then the
// connection is closed. There are no retries and no resumable transfers.
//
// # Host keys
//
// SFTP connections trust the server's host key on first use. When the file
// named by Config.KnownHostsFile does not exist, the first connection accepts
// any key and writes it there in known_hosts format. Every later connection
// is verified strictly against that file and fails when the key differs.
// Nothing verifies the first key out of band; pre-populate the file when that
// matters.
//
// # Directory download
//
//	creds := fetchkit.NewCredentials(password)
//	defer creds.Clear()
//
//	results, err := fetchkit.SyncDirectory(ctx, fetchkit.Config{
//		Scheme:         fetchkit.SchemeSFTP,
//		Host:           "example.com",
//		User:           "deploy",
//		KnownHostsFile: "/var/lib/fetch/known_hosts",
//	}, creds, "/outgoing", "/srv/incoming")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := fetchkit.Failures(results); err != nil {
//		log.Print(err)
//	}
package fetchkit
